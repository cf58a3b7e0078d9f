package scheduler

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var errInvalidPID = errors.New("invalid PID in file")

// ChildFlag marks the re-executed daemon process.
const ChildFlag = "--daemon-child"

// StartDaemon starts the scheduler as a background daemon process.
// It re-executes the current binary as "watch --daemon-child" plus args,
// writes the PID to pidFile, and redirects output to logFile.
func StartDaemon(pidFile, logFile string, args ...string) error {
	running, err := IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", pidFile)
	}

	if err := os.MkdirAll(filepath.Dir(pidFile), 0o755); err != nil {
		return fmt.Errorf("failed to create PID directory: %w", err)
	}
	logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(executable, append([]string{"watch", ChildFlag}, args...)...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0644); err != nil {
		cmd.Process.Kill()
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release process: %w", err)
	}

	return nil
}

// RunDaemon runs the scheduler until SIGTERM or SIGINT, then removes
// pidFile. The daemon child calls it.
func (s *Scheduler) RunDaemon(pidFile string) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	if err := s.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	sig := <-sigCh
	s.log.Info().Str("signal", sig.String()).Msg("shutting down")

	if err := s.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}

	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}

	return nil
}

// StopDaemon stops a running daemon by sending SIGTERM to the process.
func StopDaemon(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("daemon not running (PID file not found)")
		}
		return err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM to process %d: %w", pid, err)
	}
	return nil
}

// IsDaemonRunning checks if a daemon is running by checking the PID file.
// A PID file naming a dead process is removed.
func IsDaemonRunning(pidFile string) (bool, error) {
	pid, err := readPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		if errors.Is(err, errInvalidPID) {
			return false, nil
		}
		return false, err
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	// Signal 0 probes for existence.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return false, nil
	}

	return true, nil
}

// DaemonPID returns the PID recorded in pidFile, or 0 if none.
func DaemonPID(pidFile string) int {
	pid, err := readPID(pidFile)
	if err != nil {
		return 0
	}
	return pid
}

func readPID(pidFile string) (int, error) {
	pidData, err := os.ReadFile(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errInvalidPID, err)
	}
	return pid, nil
}
