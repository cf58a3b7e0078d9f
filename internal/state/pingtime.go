package state

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

// LastPingTime returns when product last pinged. ok is false if it never
// did.
func (s *Session) LastPingTime(product rlz.Product) (t time.Time, ok bool, err error) {
	if !product.Valid() {
		return time.Time{}, false, fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	if err := s.check(false); err != nil {
		return time.Time{}, false, err
	}

	data, err := s.e.store.Read(s.e.pingTimesKey(), product.Name())
	if errors.Is(err, store.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	nanos, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		// Corrupt timestamp: treat as never pinged so the product pings.
		s.e.log.Warn().Str("product", product.Name()).Str("value", string(data)).Msg("ignoring unparseable ping time")
		return time.Time{}, false, nil
	}
	return time.Unix(0, nanos), true, nil
}

// UpdateLastPingTime records now as the product's last ping.
func (s *Session) UpdateLastPingTime(product rlz.Product) error {
	if !product.Valid() {
		return fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	if err := s.check(true); err != nil {
		return err
	}
	now := strconv.FormatInt(s.e.now().UnixNano(), 10)
	if err := s.e.store.Write(s.e.pingTimesKey(), product.Name(), []byte(now)); err != nil {
		return fmt.Errorf("failed to update ping time: %w", err)
	}
	return nil
}

// ClearLastPingTime forgets the product's last ping.
func (s *Session) ClearLastPingTime(product rlz.Product) error {
	if !product.Valid() {
		return fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	if err := s.check(true); err != nil {
		return err
	}
	if err := s.e.store.Delete(s.e.pingTimesKey(), product.Name()); err != nil {
		return fmt.Errorf("failed to clear ping time: %w", err)
	}
	return nil
}
