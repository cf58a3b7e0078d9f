package app

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/config"
	"github.com/blackwell-systems/rlztrack/internal/financial"
	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/output"
	"github.com/blackwell-systems/rlztrack/internal/scheduler"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Ping configured products whenever they are due",
		Long: `Run the ping scheduler. Every check interval (1 hour by default) each
configured product is pinged if it is due: 24 hours after its last ping when
events are pending, 7 days otherwise.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stop: Stop a running daemon

Edits to the config file are picked up without a restart: the product list
is reloaded whenever the file is written.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  rlztrack watch

  # Run as background daemon
  rlztrack watch --daemon

  # Stop running daemon
  rlztrack watch --stop

  # Use custom PID and log files
  rlztrack watch --daemon --pid-file /tmp/watch.pid --log-file /tmp/watch.log`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: <data dir>/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: <data dir>/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchDaemon && watchStop {
		return fmt.Errorf("--daemon and --stop are mutually exclusive")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if watchPIDFile == "" {
		watchPIDFile = cfg.PIDPath()
	}
	if watchLogFile == "" {
		watchLogFile = cfg.LogPath()
	}

	if watchStop {
		return stopWatchDaemon(cmd)
	}
	if watchDaemon {
		return startWatchDaemon(cmd)
	}

	profile := logging.ProfileRuntime
	if watchDaemonChild {
		profile = logging.ProfileDaemon
	}
	e, err := openEnv(profile)
	if err != nil {
		return err
	}
	defer e.Close()

	s, err := newScheduler(e)
	if err != nil {
		return err
	}

	if watchDaemonChild {
		// stdout and stderr are the log file here
		return s.RunDaemon(watchPIDFile)
	}
	return runWatchForeground(cmd, s)
}

func newScheduler(e *env) (*scheduler.Scheduler, error) {
	reqs, err := requests(e.cfg)
	if err != nil {
		return nil, err
	}
	p, err := e.pinger()
	if err != nil {
		return nil, err
	}

	opts := []scheduler.Option{scheduler.WithLogger(e.log)}
	path := e.cfgPath
	if _, err := os.Stat(filepath.Dir(path)); err == nil {
		opts = append(opts, scheduler.WithReload(path, func() ([]financial.Request, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return requests(cfg)
		}))
	} else {
		e.log.Info().Str("path", path).Msg("config directory missing, reload disabled")
	}
	return scheduler.New(p, reqs, e.cfg.CheckInterval, opts...)
}

func stopWatchDaemon(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	running, err := scheduler.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Fprintln(out, "Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon")
	spinner.SetWriter(out)
	spinner.Start()
	if err := scheduler.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

// childArgs forwards the global flags so the daemon reads the same config.
func childArgs() ([]string, error) {
	var args []string
	for _, f := range []struct{ name, value string }{
		{"--config", configPath},
		{"--data-dir", dataDir},
		{"--pid-file", watchPIDFile},
	} {
		if f.value == "" {
			continue
		}
		abs, err := filepath.Abs(f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", f.name, err)
		}
		args = append(args, f.name, abs)
	}
	return args, nil
}

func startWatchDaemon(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	running, err := scheduler.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Fprintf(out, "Daemon already running (PID %d). Nothing to do.\n", scheduler.DaemonPID(watchPIDFile))
		return nil
	}

	args, err := childArgs()
	if err != nil {
		return err
	}

	spinner := output.NewSpinner("Starting daemon")
	spinner.SetWriter(out)
	spinner.Start()
	if err := scheduler.StartDaemon(watchPIDFile, watchLogFile, args...); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Fprintf(out, "\nPing daemon started\n")
	fmt.Fprintf(out, "  PID file: %s\n", watchPIDFile)
	fmt.Fprintf(out, "  Log file: %s\n", watchLogFile)
	fmt.Fprintf(out, "\nTo stop: rlztrack watch --stop\n")

	return nil
}

func runWatchForeground(cmd *cobra.Command, s *scheduler.Scheduler) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scheduling pings for %d product(s) (press Ctrl+C to stop)...\n\n", len(s.Requests()))

	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	fmt.Fprintf(out, "\nReceived signal %v, shutting down...\n", sig)

	spinner := output.NewSpinner("Stopping scheduler")
	spinner.SetWriter(out)
	spinner.Start()
	if err := s.Stop(); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	spinner.StopWithMessage("✓ Scheduler stopped")

	return nil
}
