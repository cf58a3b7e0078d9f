package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/blackwell-systems/rlztrack/internal/checksum"
)

// setupTestEnv points the global flags at a temp config and data directory.
// serverURL is written to the config when not empty.
func setupTestEnv(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg-config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "xdg-data"))

	machineDir := filepath.Join(dir, "machine")
	if err := os.MkdirAll(machineDir, 0755); err != nil {
		t.Fatalf("failed to create machine dir: %v", err)
	}

	content := fmt.Sprintf("machine_dir = %q\n", machineDir)
	if serverURL != "" {
		content += fmt.Sprintf("server_url = %q\nretries = 1\n", serverURL)
	}
	content += `
[[products]]
product = "T"
access_points = ["T4", "I7"]
signature = "tbrfsig"
lang = "en"
exclude_machine_id = true
`
	cfgFile := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	origConfig, origData := configPath, dataDir
	configPath = cfgFile
	dataDir = filepath.Join(dir, "data")
	resetCommandFlags()
	t.Cleanup(func() {
		configPath, dataDir = origConfig, origData
		resetCommandFlags()
	})
	return dir
}

func resetCommandFlags() {
	recordStateful = false
	eventsCgi = false
	paramsRequest = false
	pingForce = false
	pingDryRun = false
	watchDaemon = false
	watchDaemonChild = false
	watchPIDFile = ""
	watchLogFile = ""
	watchStop = false
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	if args == nil {
		// nil would make cobra fall back to os.Args
		args = []string{}
	}
	// flag variables outlive Execute
	resetCommandFlags()
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs(args)
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	}()
	err := RootCmd.Execute()
	return buf.String(), err
}

func mustExecute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("rlztrack %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

func signResponse(body string) string {
	return fmt.Sprintf("%scrc32: %08X\n", body, checksum.String(body))
}
