package app

import (
	"os"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if RootCmd.Use != "rlztrack" {
		t.Errorf("expected Use to be 'rlztrack', got '%s'", RootCmd.Use)
	}

	if RootCmd.Short == "" {
		t.Error("expected Short description to be set")
	}

	if RootCmd.Long == "" {
		t.Error("expected Long description to be set")
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	expectedCommands := []string{
		"record", "clear-event", "events", "rlz", "dcc", "params",
		"ping", "apply", "clear", "status", "watch", "grant-machine-access",
	}
	foundCommands := make(map[string]bool)

	for _, cmd := range RootCmd.Commands() {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("expected command '%s' to be registered", expected)
		}
	}
}

func TestRootCommandHasPersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "data-dir"} {
		flag := RootCmd.PersistentFlags().Lookup(name)
		if flag == nil {
			t.Errorf("expected --%s flag to be registered", name)
			continue
		}
		if flag.Usage == "" {
			t.Errorf("expected --%s flag to have usage text", name)
		}
	}
}

func TestRootCommandPrintsTip(t *testing.T) {
	setupTestEnv(t, "")

	out := mustExecute(t)
	if !strings.Contains(out, "rlztrack status") {
		t.Errorf("expected tip to mention 'rlztrack status', got: %q", out)
	}
}

func TestLoadConfigAppliesDataDirFlag(t *testing.T) {
	dir := setupTestEnv(t, "")

	cfg, path, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if path != configPath {
		t.Errorf("expected config path %s, got %s", configPath, path)
	}
	if !strings.HasPrefix(cfg.DataDir, dir) {
		t.Errorf("expected data dir under %s, got %s", dir, cfg.DataDir)
	}
	if len(cfg.Products) != 1 || cfg.Products[0].Product != "T" {
		t.Errorf("expected one configured product T, got %+v", cfg.Products)
	}
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	dir := setupTestEnv(t, "")
	configPath = dir + "/bad.toml"
	if err := os.WriteFile(configPath, []byte("unknown_key = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := loadConfig(); err == nil {
		t.Fatal("expected an error for an unknown config key")
	}
}
