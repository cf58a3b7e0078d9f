// Package ping implements the attribution ping protocol: validating a
// checksum-protected server response, applying it to local state, and
// building the query parameters the next request carries.
package ping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blackwell-systems/rlztrack/internal/checksum"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

// ErrInvalidResponse is returned for a response that is empty, oversized or
// whose checksum trailer does not match its body.
var ErrInvalidResponse = errors.New("ping: invalid response")

const trailerMarker = "\n" + rlz.ChecksumMarker

// Trailer describes where a response's checksum line sits.
type Trailer struct {
	// BodyEnd is the length of the covered body, including its final
	// newline. Zero for the empty-body form.
	BodyEnd int
	// Clean is false when the checksum digits were followed by other
	// characters. Such trailers are still accepted.
	Clean bool
}

// Validate checks response against its checksum trailer and returns the
// length of the covered body. Nothing in a response may be acted on before
// it passes.
func Validate(response string) (int, error) {
	t, err := Inspect(response)
	return t.BodyEnd, err
}

// Inspect is Validate with the trailer details.
func Inspect(response string) (Trailer, error) {
	if response == "" {
		return Trailer{}, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}
	if len(response) > rlz.MaxPingResponseLength {
		return Trailer{}, fmt.Errorf("%w: response is too long to parse", ErrInvalidResponse)
	}

	var (
		body  string
		start int
	)
	if i := strings.Index(response, trailerMarker); i >= 0 {
		body = response[:i+1]
		start = i + len(trailerMarker)
	} else if strings.HasPrefix(response, rlz.ChecksumMarker) {
		start = len(rlz.ChecksumMarker)
	} else {
		return Trailer{}, fmt.Errorf("%w: no checksum trailer", ErrInvalidResponse)
	}

	digits := response[start:]
	if i := strings.IndexByte(digits, '\n'); i >= 0 {
		digits = digits[:i]
	}
	want, clean := checksum.ParseHex(strings.TrimSpace(digits))
	if want != checksum.String(body) {
		return Trailer{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidResponse)
	}
	return Trailer{BodyEnd: len(body), Clean: clean}, nil
}
