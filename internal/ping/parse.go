package ping

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
)

// DealUpdater adopts a machine deal code carried by a response.
type DealUpdater interface {
	SetFromResponse(response string) error
}

// Parser applies validated ping responses to local state.
type Parser struct {
	deal DealUpdater
	log  zerolog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithDeal hands every applied response to d afterwards.
func WithDeal(d DealUpdater) Option {
	return func(p *Parser) { p.deal = d }
}

func WithLogger(l zerolog.Logger) Option {
	return func(p *Parser) { p.log = l }
}

// NewParser returns a parser. Without WithDeal, deal codes in responses are
// ignored.
func NewParser(opts ...Option) *Parser {
	p := &Parser{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result counts what a response changed.
type Result struct {
	RlzsSet          int
	EventsCleared    int
	StatefulRecorded int
	Skipped          int
}

// Apply validates response and applies each of its records to the product's
// state through s. An invalid response changes nothing. Once validated,
// malformed lines are skipped and lines already applied stay applied.
func (p *Parser) Apply(s *state.Session, product rlz.Product, response string) (Result, error) {
	var res Result
	trailer, err := Inspect(response)
	if err != nil {
		return res, err
	}
	if !trailer.Clean {
		p.log.Debug().Msg("checksum trailer has trailing characters; accepted")
	}
	if err := s.Check(true); err != nil {
		return res, err
	}

	body := response[:trailer.BodyEnd]
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		p.applyLine(s, product, line, &res)
	}

	if p.deal != nil {
		if err := p.deal.SetFromResponse(response); err != nil {
			p.log.Warn().Err(err).Msg("failed to update deal code from response")
		}
	}
	return res, nil
}

// ApplyTo runs Apply inside a fresh session of e.
func (p *Parser) ApplyTo(e *state.Engine, product rlz.Product, response string) (res Result, err error) {
	err = e.Do(func(s *state.Session) error {
		res, err = p.Apply(s, product, response)
		return err
	})
	return res, err
}

var (
	eventsPrefix   = rlz.EventsCgiVariable + ": "
	statefulPrefix = rlz.StatefulEventsCgiVariable + ": "
)

func (p *Parser) applyLine(s *state.Session, product rlz.Product, line string, res *Result) {
	switch {
	case strings.HasPrefix(line, rlz.RlzCgiVariable):
		p.applyRlz(s, line, res)
	case strings.HasPrefix(line, eventsPrefix):
		for _, rec := range p.tokens(line[len(eventsPrefix):], res) {
			if err := s.ClearEvent(product, rec.Point, rec.Event); err != nil {
				p.skip(res, line, err)
				continue
			}
			res.EventsCleared++
		}
	case strings.HasPrefix(line, statefulPrefix):
		for _, rec := range p.tokens(line[len(statefulPrefix):], res) {
			if err := s.RecordStatefulEvent(product, rec.Point, rec.Event); err != nil {
				p.skip(res, line, err)
				continue
			}
			res.StatefulRecorded++
		}
	}
}

// applyRlz handles "rlz<point>: <value>".
func (p *Parser) applyRlz(s *state.Session, line string, res *Result) {
	sep := strings.Index(line, ": ")
	if sep < 0 {
		p.skip(res, line, nil)
		return
	}
	point, ok := rlz.AccessPointFromName(line[len(rlz.RlzCgiVariable):sep])
	if !ok || point == rlz.NoAccessPoint {
		p.skip(res, line, nil)
		return
	}
	if !point.Supported() {
		p.log.Debug().Str("point", point.Name()).Msg("rlz for unsupported access point ignored")
		return
	}

	value := firstField(line[sep+2:])
	if len(value) > rlz.MaxRlzLength {
		value = value[:rlz.MaxRlzLength]
	}
	if err := s.SetRlz(point, value); err != nil {
		p.skip(res, line, err)
		return
	}
	res.RlzsSet++
}

// tokens splits an events list into resolvable records.
func (p *Parser) tokens(list string, res *Result) []rlz.EventRecord {
	list = firstField(list)
	var records []rlz.EventRecord
	for _, tok := range strings.Split(list, string(rlz.EventsCgiSeparator)) {
		rec, ok := rlz.ParseEventToken(tok)
		if !ok {
			if tok != "" {
				p.skip(res, tok, nil)
			}
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (p *Parser) skip(res *Result, what string, err error) {
	res.Skipped++
	ev := p.log.Debug().Str("record", what)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("skipping response record")
}

// firstField trims leading blanks and cuts at the next space, CR or LF.
func firstField(s string) string {
	s = strings.TrimLeft(s, " \t\r\n")
	if i := strings.IndexAny(s, " \r\n"); i >= 0 {
		s = s[:i]
	}
	return s
}
