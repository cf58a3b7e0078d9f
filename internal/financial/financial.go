// Package financial drives the financial ping: it forms the request for a
// product, decides whether it is time to send it, and applies the reply.
package financial

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/rlztrack/internal/ping"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
)

// Default ping intervals.
const (
	EventsInterval   = 24 * time.Hour
	NoEventsInterval = 7 * 24 * time.Hour
)

// ErrNotPingTime is returned by SendPing when the product pinged too
// recently.
var ErrNotPingTime = errors.New("financial: not time to ping")

// Request identifies the product a ping is sent for.
type Request struct {
	Product          rlz.Product
	Points           []rlz.AccessPoint
	Signature        string
	Brand            string
	ID               string
	Lang             string
	ExcludeMachineID bool
}

// Sender delivers a request path to the ping server and returns the body.
type Sender interface {
	Send(ctx context.Context, request string) (string, error)
}

// DealSource supplies the machine deal code field.
type DealSource interface {
	Get() (string, error)
}

// Pinger holds the collaborators of a financial ping.
type Pinger struct {
	engine    *state.Engine
	parser    *ping.Parser
	sender    Sender
	deal      DealSource
	machineID func() (string, error)
	events    time.Duration
	noEvents  time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// Option configures a Pinger.
type Option func(*Pinger)

func WithSender(s Sender) Option {
	return func(p *Pinger) { p.sender = s }
}

func WithDeal(d DealSource) Option {
	return func(p *Pinger) { p.deal = d }
}

func WithParser(parser *ping.Parser) Option {
	return func(p *Pinger) { p.parser = parser }
}

// WithMachineID sets how the machine id is obtained for requests that
// report events.
func WithMachineID(fn func() (string, error)) Option {
	return func(p *Pinger) { p.machineID = fn }
}

// WithIntervals overrides the minimum time between pings with and without
// pending events. Zero values keep the defaults.
func WithIntervals(events, noEvents time.Duration) Option {
	return func(p *Pinger) {
		if events > 0 {
			p.events = events
		}
		if noEvents > 0 {
			p.noEvents = noEvents
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pinger) { p.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Pinger) { p.log = l }
}

// New returns a Pinger over e.
func New(e *state.Engine, opts ...Option) *Pinger {
	p := &Pinger{
		engine:   e,
		parser:   ping.NewParser(),
		events:   EventsInterval,
		noEvents: NoEventsInterval,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FormRequest builds the request path:
//
//	/tools/pso/ping?as=<sig>&brand=<b>&id=<id>&hl=<lang>&version=2&rlz=...&events=...&dcc=...&mid=...
//
// Without pending events the rlz list covers every access point holding a
// value, not just the product's own. The machine id is sent only with
// events and only when not excluded.
func (p *Pinger) FormRequest(req Request) (string, error) {
	if !req.Product.Valid() {
		return "", fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(req.Product))
	}
	if req.Signature == "" {
		return "", fmt.Errorf("%w: product signature is required", rlz.ErrInvalidInput)
	}

	var dcc string
	if p.deal != nil {
		var err error
		if dcc, err = p.deal.Get(); err != nil {
			p.log.Warn().Err(err).Msg("deal code unavailable, omitting")
			dcc = ""
		}
	}

	var b strings.Builder
	b.WriteString(rlz.FinancialPingPath)
	b.WriteString("?" + rlz.ProductSignatureCgiVariable + "=" + url.QueryEscape(req.Signature))
	for _, f := range []struct{ name, value string }{
		{rlz.ProductBrandCgiVariable, req.Brand},
		{rlz.ProductIDCgiVariable, req.ID},
		{rlz.ProductLanguageCgiVariable, req.Lang},
	} {
		if f.value != "" {
			b.WriteString("&" + f.name + "=" + url.QueryEscape(f.value))
		}
	}

	var hasEvents bool
	err := p.engine.Do(func(s *state.Session) error {
		events, err := s.Events(req.Product)
		if err != nil {
			return err
		}
		hasEvents = len(events) > 0

		points := req.Points
		if !hasEvents {
			points = rlz.AccessPoints()
		}
		params, err := ping.Params(s, req.Product, points, dcc, rlz.MaxCgiLength)
		if err != nil {
			return err
		}
		b.WriteString("&" + params)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to form ping request: %w", err)
	}

	if hasEvents && !req.ExcludeMachineID && p.machineID != nil {
		id, err := p.machineID()
		if err != nil {
			p.log.Debug().Err(err).Msg("machine id unavailable, omitting")
		} else {
			b.WriteString("&" + rlz.MachineIDCgiVariable + "=" + id)
		}
	}
	return b.String(), nil
}

// IsPingTime reports whether product is due a ping: it never pinged, the
// clock went backwards, or the interval for its event state has passed.
// skipTimeCheck pings at once when events are pending.
func (p *Pinger) IsPingTime(product rlz.Product, skipTimeCheck bool) (bool, error) {
	var due bool
	err := p.engine.Do(func(s *state.Session) error {
		last, ok, err := s.LastPingTime(product)
		if err != nil {
			return err
		}
		if !ok {
			due = true
			return nil
		}
		elapsed := p.now().Sub(last)
		if elapsed < 0 {
			due = true
			return nil
		}

		events, err := s.Events(product)
		if err != nil {
			return err
		}
		hasEvents := len(events) > 0
		if skipTimeCheck && hasEvents {
			due = true
			return nil
		}
		interval := p.noEvents
		if hasEvents {
			interval = p.events
		}
		due = elapsed >= interval
		return nil
	})
	return due, err
}

// Ping sends request when the product is due and returns the raw reply.
func (p *Pinger) Ping(ctx context.Context, product rlz.Product, request string) (string, error) {
	due, err := p.IsPingTime(product, false)
	if err != nil {
		return "", err
	}
	if !due {
		return "", ErrNotPingTime
	}
	return p.send(ctx, request)
}

// ParseResponse records the ping attempt and applies response.
func (p *Pinger) ParseResponse(product rlz.Product, response string) (ping.Result, error) {
	if err := p.engine.UpdateLastPingTime(product); err != nil {
		p.log.Warn().Err(err).Str("product", product.Name()).Msg("failed to update ping time")
	}
	return p.parser.ApplyTo(p.engine, product, response)
}

// SendPing forms, sends and applies a financial ping for req. The ping
// time is updated before sending, whether or not the send succeeds.
func (p *Pinger) SendPing(ctx context.Context, req Request, skipTimeCheck bool) (ping.Result, error) {
	request, err := p.FormRequest(req)
	if err != nil {
		return ping.Result{}, err
	}

	due, err := p.IsPingTime(req.Product, skipTimeCheck)
	if err != nil {
		return ping.Result{}, err
	}
	if !due {
		return ping.Result{}, ErrNotPingTime
	}

	if err := p.engine.UpdateLastPingTime(req.Product); err != nil {
		p.log.Warn().Err(err).Str("product", req.Product.Name()).Msg("failed to update ping time")
	}
	response, err := p.send(ctx, request)
	if err != nil {
		return ping.Result{}, err
	}

	res, err := p.parser.ApplyTo(p.engine, req.Product, response)
	if err != nil {
		return res, err
	}
	p.log.Info().
		Str("product", req.Product.Name()).
		Int("rlzs", res.RlzsSet).
		Int("events_cleared", res.EventsCleared).
		Msg("financial ping applied")
	return res, nil
}

func (p *Pinger) send(ctx context.Context, request string) (string, error) {
	if p.sender == nil {
		return "", fmt.Errorf("no ping sender configured")
	}
	response, err := p.sender.Send(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to send ping: %w", err)
	}
	return response, nil
}
