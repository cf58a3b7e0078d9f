// Package lock provides the machine-wide exclusive lock that guards every
// read-modify-write of shared rlztrack state.
//
// Acquire hands out a Token. Operations that mutate the store take the token
// as proof that the caller holds the lock; tokens are never kept beyond one
// operation sequence. Acquisition waits a bounded time and then fails with
// ErrTimeout.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

var (
	ErrTimeout = errors.New("lock: timed out waiting for lock")
	ErrNotHeld = errors.New("lock: token does not hold the lock")
)

// DefaultTimeout bounds how long Acquire waits before giving up.
const DefaultTimeout = 5 * time.Second

const pollInterval = 10 * time.Millisecond

// Token is an opaque capability proving the lock is held.
type Token struct {
	id       string
	owner    Locker
	release  func() error
	mu       sync.Mutex
	released bool
}

// ID identifies the acquisition in logs.
func (t *Token) ID() string {
	if t == nil {
		return ""
	}
	return t.id
}

// HeldBy reports whether t is a live token issued by l.
func (t *Token) HeldBy(l Locker) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.released && t.owner == l
}

// Locker is a named exclusive lock.
type Locker interface {
	Acquire() (*Token, error)
	Release(*Token) error
}

// With acquires l, runs fn with the token and always releases. A release
// failure is returned when fn itself succeeded.
func With(l Locker, fn func(*Token) error) (err error) {
	tok, err := l.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := l.Release(tok); err == nil && rerr != nil {
			err = fmt.Errorf("failed to release lock: %w", rerr)
		}
	}()
	return fn(tok)
}

func newToken(owner Locker, release func() error) *Token {
	return &Token{
		id:      uuid.Must(uuid.NewV7()).String(),
		owner:   owner,
		release: release,
	}
}

func releaseToken(owner Locker, t *Token) error {
	if t == nil || t.owner != owner {
		return ErrNotHeld
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return ErrNotHeld
	}
	t.released = true
	return t.release()
}

// File is a lock backed by flock(2) on a lock file, shared by every process
// on the machine that names the same path.
type File struct {
	path    string
	timeout time.Duration
}

// NewFile returns a lock on path. A zero timeout means DefaultTimeout.
func NewFile(path string, timeout time.Duration) *File {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &File{path: path, timeout: timeout}
}

// Acquire blocks for at most the configured timeout.
func (l *File) Acquire() (*Token, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	deadline := time.Now().Add(l.timeout)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			f.Close()
			return nil, fmt.Errorf("failed to lock %s: %w", l.path, err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("%s after %s: %w", l.path, l.timeout, ErrTimeout)
		}
		time.Sleep(pollInterval)
	}

	return newToken(l, func() error {
		defer f.Close()
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			return fmt.Errorf("failed to unlock %s: %w", l.path, err)
		}
		return nil
	}), nil
}

// Release unlocks. Releasing twice or with a foreign token fails.
func (l *File) Release(t *Token) error {
	return releaseToken(l, t)
}

// Memory is an in-process lock for single-process use and tests.
type Memory struct {
	sem     chan struct{}
	timeout time.Duration
}

// NewMemory returns an unlocked in-process lock.
func NewMemory(timeout time.Duration) *Memory {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Memory{sem: make(chan struct{}, 1), timeout: timeout}
}

func (l *Memory) Acquire() (*Token, error) {
	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case l.sem <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("after %s: %w", l.timeout, ErrTimeout)
	}
	return newToken(l, func() error {
		<-l.sem
		return nil
	}), nil
}

func (l *Memory) Release(t *Token) error {
	return releaseToken(l, t)
}
