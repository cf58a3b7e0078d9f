package state

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

// Rlz returns the stored value for point, or "" when none is set. It needs
// read access but not the lock: a single-key read is atomic in the store.
func (e *Engine) Rlz(point rlz.AccessPoint) (string, error) {
	if err := e.requireAccess(false); err != nil {
		return "", err
	}
	return e.readRlz(point)
}

func (e *Engine) readRlz(point rlz.AccessPoint) (string, error) {
	if !point.Supported() {
		return "", fmt.Errorf("%w: %s", rlz.ErrUnsupportedPoint, point)
	}
	data, err := e.store.Read(e.rlzsKey(), point.Name())
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read rlz for %s: %w", point, err)
	}
	return string(data), nil
}

// Rlz is Engine.Rlz inside the session.
func (s *Session) Rlz(point rlz.AccessPoint) (string, error) {
	if err := s.check(false); err != nil {
		return "", err
	}
	return s.e.readRlz(point)
}

// SetRlz stores value for point. Values longer than rlz.MaxRlzLength are
// rejected; disallowed characters are normalized to '.'. Setting "" clears
// the stored value.
func (s *Session) SetRlz(point rlz.AccessPoint, value string) error {
	if err := s.check(true); err != nil {
		return err
	}
	if !point.Supported() {
		return fmt.Errorf("cannot set rlz: %w: %s", rlz.ErrUnsupportedPoint, point)
	}
	normalized, err := rlz.PrepareValue(value)
	if err != nil {
		return fmt.Errorf("cannot set rlz for %s: %w", point, err)
	}

	key := s.e.rlzsKey()
	if normalized == "" {
		if err := s.e.store.Delete(key, point.Name()); err != nil {
			return fmt.Errorf("failed to clear rlz for %s: %w", point, err)
		}
		still, err := s.has(key, point.Name())
		if err != nil {
			return err
		}
		if still {
			return fmt.Errorf("failed to clear rlz for %s: value still present after delete", point)
		}
		return nil
	}

	if err := s.e.store.Write(key, point.Name(), []byte(normalized)); err != nil {
		return fmt.Errorf("failed to write rlz for %s: %w", point, err)
	}
	return nil
}
