package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/rlztrack/internal/config"
	"github.com/blackwell-systems/rlztrack/internal/lock"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

func TestRecord(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("data_dir = \""+filepath.Join(dir, "data")+"\"\n"), 0o644))
	t.Setenv(envConfig, cfgFile)

	require.NoError(t, record("T", "T4", "I"))

	cfg, err := config.Load(cfgFile)
	require.NoError(t, err)
	st, err := store.Open(cfg.UserStorePath())
	require.NoError(t, err)
	defer st.Close()
	e, err := state.New(st, lock.NewFile(cfg.UserLockPath(), 0))
	require.NoError(t, err)

	events, err := e.Events(rlz.IEToolbar)
	require.NoError(t, err)
	assert.Equal(t, []rlz.EventRecord{{Point: rlz.IETBSearchBox, Event: rlz.Install}}, events)
}

func TestRecordRejectsUnknownCodes(t *testing.T) {
	t.Setenv(envConfig, filepath.Join(t.TempDir(), "missing.toml"))

	assert.Error(t, record("Z", "T4", "I"))
	assert.Error(t, record("T", "", "I"))
	assert.Error(t, record("T", "T4", "X"))
}
