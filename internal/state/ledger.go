package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

var eventMarker = []byte("1")

// RecordEvent adds (point, event) to the product's pending events. An event
// already in the stateful ledger is suppressed: nothing is written and the
// call succeeds.
func (s *Session) RecordEvent(product rlz.Product, point rlz.AccessPoint, event rlz.Event) error {
	rec, err := validateRecord(product, point, event)
	if err != nil {
		return err
	}
	if err := s.check(true); err != nil {
		return err
	}

	stateful, err := s.has(s.e.statefulKey(product), rec.Token())
	if err != nil {
		return err
	}
	if stateful {
		s.e.log.Debug().Str("product", product.Name()).Str("event", rec.Token()).Msg("stateful event suppressed")
		return nil
	}

	if err := s.e.store.Write(s.e.eventsKey(product), rec.Token(), eventMarker); err != nil {
		return fmt.Errorf("failed to record event %s: %w", rec.Token(), err)
	}
	return nil
}

// ClearEvent removes (point, event) from the pending events and verifies it
// is gone. Only the transient ledger is touched.
func (s *Session) ClearEvent(product rlz.Product, point rlz.AccessPoint, event rlz.Event) error {
	rec, err := validateRecord(product, point, event)
	if err != nil {
		return err
	}
	if err := s.check(true); err != nil {
		return err
	}

	key := s.e.eventsKey(product)
	if err := s.e.store.Delete(key, rec.Token()); err != nil {
		return fmt.Errorf("failed to clear event %s: %w", rec.Token(), err)
	}

	still, err := s.has(key, rec.Token())
	if err != nil {
		return err
	}
	if still {
		return fmt.Errorf("failed to clear event %s: value still present after delete", rec.Token())
	}
	return nil
}

// RecordStatefulEvent marks (point, event) as reported for good. Recording
// an already stateful event is a no-op.
func (s *Session) RecordStatefulEvent(product rlz.Product, point rlz.AccessPoint, event rlz.Event) error {
	rec, err := validateRecord(product, point, event)
	if err != nil {
		return err
	}
	if err := s.check(true); err != nil {
		return err
	}
	if err := s.e.store.Write(s.e.statefulKey(product), rec.Token(), eventMarker); err != nil {
		return fmt.Errorf("failed to record stateful event %s: %w", rec.Token(), err)
	}
	return nil
}

// ClearAllEvents removes every pending and every stateful event of the
// product. Both ledgers are attempted even if the first fails.
func (s *Session) ClearAllEvents(product rlz.Product) error {
	if !product.Valid() {
		return fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	if err := s.check(true); err != nil {
		return err
	}

	return errors.Join(
		s.clearLedger(s.e.eventsKey(product)),
		s.clearLedger(s.e.statefulKey(product)),
	)
}

func (s *Session) clearLedger(key string) error {
	if err := s.e.store.DeleteKey(key); err != nil {
		return err
	}
	exists, err := s.e.store.KeyExists(key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("failed to clear %s: key still present after delete", key)
	}
	return nil
}

// Events lists the product's pending events in store order.
func (s *Session) Events(product rlz.Product) ([]rlz.EventRecord, error) {
	return s.ledger(product, s.e.eventsKey(product))
}

// StatefulEvents lists the product's permanently suppressed events.
func (s *Session) StatefulEvents(product rlz.Product) ([]rlz.EventRecord, error) {
	return s.ledger(product, s.e.statefulKey(product))
}

func (s *Session) ledger(product rlz.Product, key string) ([]rlz.EventRecord, error) {
	if !product.Valid() {
		return nil, fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	if err := s.check(false); err != nil {
		return nil, err
	}

	entries, err := s.e.store.Enumerate(key)
	if err != nil {
		return nil, err
	}

	records := make([]rlz.EventRecord, 0, len(entries))
	for _, entry := range entries {
		rec, ok := rlz.ParseEventToken(entry.Name)
		if !ok {
			s.e.log.Debug().Str("key", key).Str("name", entry.Name).Msg("skipping unrecognised ledger entry")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// EventsAsCgi serializes the pending events as "events=<tok>,<tok>...".
// It returns ErrNoEvents when nothing is pending. Output is bounded by
// rlz.MaxCgiLength; tokens that would not fit are left for the next ping.
func (s *Session) EventsAsCgi(product rlz.Product) (string, error) {
	records, err := s.Events(product)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrNoEvents
	}

	var b strings.Builder
	b.WriteString(rlz.EventsCgiVariable)
	b.WriteByte('=')
	written := 0
	for _, rec := range records {
		tok := rec.Token()
		extra := len(tok)
		if written > 0 {
			extra++
		}
		if b.Len()+extra > rlz.MaxCgiLength {
			s.e.log.Warn().Str("product", product.Name()).Int("dropped", len(records)-written).Msg("events fragment truncated")
			break
		}
		if written > 0 {
			b.WriteByte(rlz.EventsCgiSeparator)
		}
		b.WriteString(tok)
		written++
	}
	return b.String(), nil
}

func (s *Session) has(key, name string) (bool, error) {
	_, err := s.e.store.Read(key, name)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
