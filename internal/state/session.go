package state

import (
	"fmt"

	"github.com/blackwell-systems/rlztrack/internal/lock"
)

// Session is an exclusive-lock scope over the engine's store. Its methods
// fail once the session is closed.
type Session struct {
	e   *Engine
	tok *lock.Token
}

// Close releases the lock. Closing twice is harmless.
func (s *Session) Close() error {
	if s.tok == nil {
		return nil
	}
	tok := s.tok
	s.tok = nil
	return s.e.locker.Release(tok)
}

// ID identifies the lock acquisition backing this session.
func (s *Session) ID() string {
	return s.tok.ID()
}

// Engine returns the engine this session belongs to.
func (s *Session) Engine() *Engine {
	return s.e
}

func (s *Session) check(write bool) error {
	if !s.tok.HeldBy(s.e.locker) {
		return fmt.Errorf("session: %w", lock.ErrNotHeld)
	}
	return s.e.requireAccess(write)
}

// Check verifies the session still holds the lock and the scope grants the
// requested access. Callers that run several operations use it to fail
// before the first mutation.
func (s *Session) Check(write bool) error {
	return s.check(write)
}
