package ping

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

func TestValidate(t *testing.T) {
	good := sign("rlzT4: 1T4_____en__252\nevents: T4I\n")

	tests := []struct {
		name     string
		response string
		valid    bool
	}{
		{"empty body form", "crc32: 0", true},
		{"empty body form with newline", "crc32: 0\n", true},
		{"empty body wrong checksum", "crc32: 1", false},
		{"signed body", good, true},
		{"0x prefix", strings.Replace(good, "crc32: ", "crc32: 0x", 1), true},
		{"padded digits", strings.Replace(good, "crc32: ", "crc32:   ", 1), true},
		{"empty", "", false},
		{"no trailer", "rlzT4: 1T4\n", false},
		{"trailer not at line start", "rlzT4: 1T4 crc32: 0\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.response)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidResponse)
			}
		})
	}
}

func TestValidateHexIsCaseInsensitive(t *testing.T) {
	body := "rlzC1: ABC\n"
	upper := sign(body)
	lower := body + strings.ToLower(upper[len(body):])

	_, err := Validate(upper)
	assert.NoError(t, err)
	_, err = Validate(lower)
	assert.NoError(t, err)
}

func TestValidateFlippedDigitFails(t *testing.T) {
	body := "rlzC1: ABC\nevents: C1I\n"
	response := sign(body)
	start := len(body) + len(rlz.ChecksumMarker)

	for i := start; i < start+8; i++ {
		b := []byte(response)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		_, err := Validate(string(b))
		assert.ErrorIs(t, err, ErrInvalidResponse, "digit %d flipped", i-start)
	}
}

func TestValidateReturnsBodyEnd(t *testing.T) {
	body := "rlzC1: ABC\n"
	n, err := Validate(sign(body))
	require.NoError(t, err)
	assert.Equal(t, len(body), n)

	n, err = Validate("crc32: 0")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestValidateTooLong(t *testing.T) {
	body := strings.Repeat("x", rlz.MaxPingResponseLength) + "\n"
	_, err := Validate(sign(body))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

// Trailing characters after the checksum digits are tolerated: parsing
// stops at the first non-hex character. The trailer is reported unclean.
func TestValidateLenientTrailer(t *testing.T) {
	body := "rlzC1: ABC\n"
	response := strings.TrimSuffix(sign(body), "\n") + "zz junk\n"

	trailer, err := Inspect(response)
	require.NoError(t, err)
	assert.False(t, trailer.Clean)
	assert.Equal(t, len(body), trailer.BodyEnd)

	trailer, err = Inspect(sign(body))
	require.NoError(t, err)
	assert.True(t, trailer.Clean)
}
