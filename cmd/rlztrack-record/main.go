// Command rlztrack-record records a single product event and exits.
// Installers call it as
//
//	rlztrack-record <product> <point> <event>
//
// It reads the same config file as rlztrack (RLZTRACK_CONFIG overrides the
// location) and exits non-zero if the event could not be recorded. Nothing
// is printed on success.
package main

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/rlztrack/internal/config"
	"github.com/blackwell-systems/rlztrack/internal/lock"
	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

const envConfig = "RLZTRACK_CONFIG"

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: rlztrack-record <product> <point> <event>")
		os.Exit(2)
	}
	if err := record(os.Args[1], os.Args[2], os.Args[3]); err != nil {
		fmt.Fprintf(os.Stderr, "rlztrack-record: %v\n", err)
		os.Exit(1)
	}
}

func record(productName, pointName, eventName string) error {
	product, ok := rlz.ProductFromName(productName)
	if !ok {
		return fmt.Errorf("unknown product %q", productName)
	}
	point, ok := rlz.AccessPointFromName(pointName)
	if !ok || point == rlz.NoAccessPoint {
		return fmt.Errorf("unknown access point %q", pointName)
	}
	event, ok := rlz.EventFromName(eventName)
	if !ok || event == rlz.InvalidEvent {
		return fmt.Errorf("unknown event %q", eventName)
	}

	path := os.Getenv(envConfig)
	if path == "" {
		var err error
		if path, err = config.Path(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.UserStorePath())
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := state.New(st, lock.NewFile(cfg.UserLockPath(), cfg.LockTimeout),
		state.WithLogger(logging.Configure(logging.ProfileRuntime)),
		state.WithBrand(cfg.Brand),
	)
	if err != nil {
		return err
	}
	return engine.RecordEvent(product, point, event)
}
