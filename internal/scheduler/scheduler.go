package scheduler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/blackwell-systems/rlztrack/internal/financial"
	"github.com/blackwell-systems/rlztrack/internal/ping"
)

// Pinger sends one product's financial ping.
type Pinger interface {
	SendPing(ctx context.Context, req financial.Request, skipTimeCheck bool) (ping.Result, error)
}

// ReloadFunc re-reads the product list after the config file changes.
type ReloadFunc func() ([]financial.Request, error)

// Scheduler pings every configured product on a fixed check interval.
type Scheduler struct {
	pinger   Pinger
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	requests []financial.Request

	configPath string
	reload     ReloadFunc

	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	ticker   *time.Ticker
	fsw      *fsnotify.Watcher
}

// Option configures a Scheduler.
type Option func(*Scheduler)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// WithReload watches configPath and calls fn whenever it is written.
func WithReload(configPath string, fn ReloadFunc) Option {
	return func(s *Scheduler) {
		s.configPath = configPath
		s.reload = fn
	}
}

// New creates a Scheduler for requests, checking every interval.
func New(p Pinger, requests []financial.Request, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if p == nil {
		return nil, fmt.Errorf("pinger cannot be nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		pinger:   p,
		interval: interval,
		log:      zerolog.Nop(),
		requests: requests,
		ctx:      ctx,
		cancel:   cancel,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Requests returns the products currently scheduled.
func (s *Scheduler) Requests() []financial.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]financial.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RunOnce pings every product that is due and reports how many pings went
// out. One product's failure does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	sent := 0
	for _, req := range s.Requests() {
		if ctx.Err() != nil {
			break
		}
		res, err := s.pinger.SendPing(ctx, req, false)
		switch {
		case errors.Is(err, financial.ErrNotPingTime):
			s.log.Debug().Str("product", req.Product.Name()).Msg("not due")
		case err != nil:
			s.log.Error().Err(err).Str("product", req.Product.Name()).Msg("ping failed")
		default:
			sent++
			s.log.Info().
				Str("product", req.Product.Name()).
				Int("rlzs", res.RlzsSet).
				Int("events_cleared", res.EventsCleared).
				Msg("pinged")
		}
	}
	return sent
}

// Start runs one pass immediately, then one per tick until Stop.
func (s *Scheduler) Start() error {
	if s.reload != nil {
		if err := s.watchConfig(); err != nil {
			return err
		}
	}

	s.RunOnce(s.ctx)
	s.ticker = time.NewTicker(s.interval)

	s.wg.Add(1)
	go s.runTicker()
	return nil
}

func (s *Scheduler) runTicker() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ticker.C:
			s.RunOnce(s.ctx)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) watchConfig() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Editors replace files rather than writing them, so watch the directory.
	if err := fsw.Add(filepath.Dir(s.configPath)); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}
	s.fsw = fsw

	s.wg.Add(1)
	go s.runConfigWatcher()
	return nil
}

func (s *Scheduler) runConfigWatcher() {
	defer s.wg.Done()

	target := filepath.Clean(s.configPath)
	for {
		select {
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			s.applyReload()
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("config watcher error")
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) applyReload() {
	requests, err := s.reload()
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.configPath).Msg("config reload failed, keeping previous products")
		return
	}
	s.mu.Lock()
	s.requests = requests
	s.mu.Unlock()
	s.log.Info().Int("products", len(requests)).Msg("config reloaded")
}

// Stop halts the scheduler and waits for an in-flight pass to finish.
// Stopping twice, or before Start, is harmless.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.cancel()
	})

	if s.ticker != nil {
		s.ticker.Stop()
	}
	var err error
	if s.fsw != nil {
		err = s.fsw.Close()
	}

	s.wg.Wait()
	return err
}
