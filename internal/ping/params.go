package ping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
)

// ErrParamsTooLong is returned when the assembled parameters exceed the
// caller's bound. Requests are never silently truncated.
var ErrParamsTooLong = errors.New("ping: parameters exceed length bound")

// Params builds "version=2&rlz=<pt>=<v>,...&events=<tok>,...&dcc=<code>".
// Points run until the first rlz.NoAccessPoint; points without a stored
// value are omitted. The events field is left out when nothing is pending,
// the dcc field when dcc is empty. The result must be at most maxLen bytes.
func Params(s *state.Session, product rlz.Product, points []rlz.AccessPoint, dcc string, maxLen int) (string, error) {
	if maxLen <= 0 {
		return "", fmt.Errorf("%w: bound must be positive", rlz.ErrInvalidInput)
	}
	if err := s.Check(false); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(rlz.ProtocolCgiVariable + "=" + rlz.ProtocolVersion)
	b.WriteString("&" + rlz.RlzCgiVariable + "=")

	first := true
	for _, point := range points {
		if point == rlz.NoAccessPoint {
			break
		}
		if !point.Supported() {
			continue
		}
		value, err := s.Rlz(point)
		if err != nil {
			return "", err
		}
		if value == "" {
			continue
		}
		if !first {
			b.WriteString(rlz.RlzCgiSeparator)
		}
		b.WriteString(point.Name() + rlz.RlzCgiIndicator + value)
		first = false
	}

	events, err := s.EventsAsCgi(product)
	switch {
	case errors.Is(err, state.ErrNoEvents):
	case err != nil:
		return "", err
	default:
		b.WriteString("&" + events)
	}

	if dcc != "" {
		b.WriteString("&" + rlz.DccCgiVariable + "=" + dcc)
	}

	if b.Len() > maxLen {
		return "", fmt.Errorf("%w: %d > %d", ErrParamsTooLong, b.Len(), maxLen)
	}
	return b.String(), nil
}

// ParamsFrom runs Params inside a fresh session of e.
func ParamsFrom(e *state.Engine, product rlz.Product, points []rlz.AccessPoint, dcc string, maxLen int) (params string, err error) {
	err = e.Do(func(s *state.Session) error {
		params, err = Params(s, product, points, dcc, maxLen)
		return err
	})
	return params, err
}
