package state

import (
	"time"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

// One-shot operations: each opens a session, runs, and releases the lock on
// every path.

func (e *Engine) RecordEvent(product rlz.Product, point rlz.AccessPoint, event rlz.Event) error {
	return e.Do(func(s *Session) error { return s.RecordEvent(product, point, event) })
}

func (e *Engine) ClearEvent(product rlz.Product, point rlz.AccessPoint, event rlz.Event) error {
	return e.Do(func(s *Session) error { return s.ClearEvent(product, point, event) })
}

func (e *Engine) RecordStatefulEvent(product rlz.Product, point rlz.AccessPoint, event rlz.Event) error {
	return e.Do(func(s *Session) error { return s.RecordStatefulEvent(product, point, event) })
}

func (e *Engine) ClearAllEvents(product rlz.Product) error {
	return e.Do(func(s *Session) error { return s.ClearAllEvents(product) })
}

func (e *Engine) Events(product rlz.Product) (records []rlz.EventRecord, err error) {
	err = e.Do(func(s *Session) error {
		records, err = s.Events(product)
		return err
	})
	return records, err
}

func (e *Engine) StatefulEvents(product rlz.Product) (records []rlz.EventRecord, err error) {
	err = e.Do(func(s *Session) error {
		records, err = s.StatefulEvents(product)
		return err
	})
	return records, err
}

func (e *Engine) EventsAsCgi(product rlz.Product) (cgi string, err error) {
	err = e.Do(func(s *Session) error {
		cgi, err = s.EventsAsCgi(product)
		return err
	})
	return cgi, err
}

func (e *Engine) SetRlz(point rlz.AccessPoint, value string) error {
	return e.Do(func(s *Session) error { return s.SetRlz(point, value) })
}

func (e *Engine) LastPingTime(product rlz.Product) (t time.Time, ok bool, err error) {
	err = e.Do(func(s *Session) error {
		t, ok, err = s.LastPingTime(product)
		return err
	})
	return t, ok, err
}

func (e *Engine) UpdateLastPingTime(product rlz.Product) error {
	return e.Do(func(s *Session) error { return s.UpdateLastPingTime(product) })
}

func (e *Engine) ClearLastPingTime(product rlz.Product) error {
	return e.Do(func(s *Session) error { return s.ClearLastPingTime(product) })
}

func (e *Engine) ClearProductState(product rlz.Product, points []rlz.AccessPoint) error {
	return e.Do(func(s *Session) error { return s.ClearProductState(product, points) })
}
