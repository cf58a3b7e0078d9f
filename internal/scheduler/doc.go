// Package scheduler runs financial pings in the background.
//
// A Scheduler wakes on a ticker and asks each configured product whether it
// is due a ping; the per-product intervals live in the financial package.
// The config file is watched with fsnotify so product changes take effect
// without a restart.
//
// Key features:
//   - Ticker-driven ping loop with an immediate first pass
//   - Config reload on file change
//   - Daemon mode support with PID file management
//   - Graceful shutdown with SIGTERM/SIGINT handling
//
// Example usage:
//
//	s, err := scheduler.New(pinger, requests, time.Hour)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Run in foreground
//	if err := s.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer s.Stop()
//
//	// Or start as daemon
//	if err := scheduler.StartDaemon("/tmp/rlztrack.pid", "/tmp/rlztrack.log"); err != nil {
//		log.Fatal(err)
//	}
package scheduler
