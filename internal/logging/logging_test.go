package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"warning", zerolog.WarnLevel, true},
		{"off", zerolog.Disabled, true},
		{"loud", zerolog.InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.raw)
		assert.Equal(t, tt.wantOK, ok, "ParseLevel(%q)", tt.raw)
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.raw)
	}
}

func TestNewWritesJSONToNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: zerolog.InfoLevel, Out: &buf})

	l.Debug().Msg("hidden")
	l.Info().Str("product", "C").Msg("ping sent")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ping sent", rec["message"])
	assert.Equal(t, "C", rec["product"])
	assert.Equal(t, "rlztrack", rec["app"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)

	assert.Equal(t, zerolog.ErrorLevel, cfg.Level)
	assert.False(t, cfg.Timestamp)
	assert.True(t, cfg.NoColor)
}

func TestLBeforeConfigureIsNop(t *testing.T) {
	// Must not panic.
	l := L()
	l.Info().Msg("discarded")
}
