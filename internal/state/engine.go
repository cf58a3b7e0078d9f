// Package state is the event ledger and RLZ store.
//
// Every mutation runs inside a Session, which holds the machine-wide lock
// for its lifetime. The Engine's convenience methods open a session, perform
// one operation and close it; the ping parser opens one session for a whole
// response and drives the Session methods directly.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/rlztrack/internal/access"
	"github.com/blackwell-systems/rlztrack/internal/lock"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

// ErrNoEvents reports that a product has no pending events. It is distinct
// from an empty-but-present list so callers can omit the field entirely.
var ErrNoEvents = errors.New("state: no pending events")

// Engine owns the per-user RLZ state of one store scope.
type Engine struct {
	store  *store.Store
	locker lock.Locker
	access access.Checker
	scope  string
	root   string
	log    zerolog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithAccess replaces the access checker (default: filesystem permissions).
func WithAccess(c access.Checker) Option {
	return func(e *Engine) { e.access = c }
}

// WithBrand keeps all state under a supplementary brand so two brandings of
// one product do not share RLZs or events.
func WithBrand(brand string) Option {
	return func(e *Engine) {
		if brand != "" {
			e.root = store.Join(rlz.LibKeyName, rlz.SupplementaryBrandPrefix+brand)
		}
	}
}

// WithClock overrides time.Now for ping-time bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine over st guarded by l.
func New(st *store.Store, l lock.Locker, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if l == nil {
		return nil, fmt.Errorf("locker cannot be nil")
	}
	e := &Engine{
		store:  st,
		locker: l,
		access: access.Filesystem{},
		scope:  st.Path(),
		root:   rlz.LibKeyName,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Logger returns the engine's logger.
func (e *Engine) Logger() zerolog.Logger {
	return e.log
}

// Root returns the key path all state lives under.
func (e *Engine) Root() string {
	return e.root
}

func (e *Engine) rlzsKey() string {
	return store.Join(e.root, rlz.RlzsSubkeyName)
}

func (e *Engine) eventsKey(p rlz.Product) string {
	return store.Join(e.root, rlz.EventsSubkeyName, p.Name())
}

func (e *Engine) statefulKey(p rlz.Product) string {
	return store.Join(e.root, rlz.StatefulEventsSubkeyName, p.Name())
}

func (e *Engine) pingTimesKey() string {
	return store.Join(e.root, rlz.PingTimesSubkeyName)
}

// Begin acquires the lock and opens a session. The caller must Close it.
func (e *Engine) Begin() (*Session, error) {
	tok, err := e.locker.Acquire()
	if err != nil {
		return nil, err
	}
	return &Session{e: e, tok: tok}, nil
}

// Do runs fn inside a session and always releases the lock.
func (e *Engine) Do(fn func(*Session) error) error {
	s, err := e.Begin()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (e *Engine) requireAccess(write bool) error {
	return access.Require(e.access, e.scope, write)
}

func validateRecord(product rlz.Product, point rlz.AccessPoint, event rlz.Event) (rlz.EventRecord, error) {
	if !product.Valid() {
		return rlz.EventRecord{}, fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	rec := rlz.EventRecord{Point: point, Event: event}
	if !rec.Valid() {
		return rlz.EventRecord{}, fmt.Errorf("%w: invalid event %s/%s", rlz.ErrInvalidInput, point, event)
	}
	return rec, nil
}
