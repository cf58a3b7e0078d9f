package app

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/output"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/scheduler"
	"github.com/blackwell-systems/rlztrack/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status and per-product ping state",
	Long: `Display the state of the ping daemon and of every configured product.

Shows:
  • Daemon running status and PID
  • State database location
  • Per product: last ping, pending and reported events, next ping due`,
	Example: `  rlztrack status`,
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

var productLabels = map[rlz.Product]string{
	rlz.IEToolbar:       "IE toolbar",
	rlz.ToolbarNotifier: "toolbar notifier",
	rlz.Pack:            "pack",
	rlz.Desktop:         "desktop",
	rlz.Chrome:          "Chrome",
	rlz.FFToolbar:       "Firefox toolbar",
	rlz.QSBWin:          "QSB",
	rlz.Webapps:         "webapps",
	rlz.PinyinIME:       "Pinyin IME",
	rlz.Partner:         "partner",
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	pidFile := e.cfg.PIDPath()
	running, err := scheduler.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	const label = "%-14s"

	fmt.Fprintln(out)
	if running {
		fmt.Fprintf(out, label+"running (PID %d, every %s)\n", "Daemon:", scheduler.DaemonPID(pidFile), e.cfg.CheckInterval)
	} else {
		fmt.Fprintf(out, label+"stopped  (run 'rlztrack watch --daemon')\n", "Daemon:")
	}

	dbLine := e.cfg.UserStorePath()
	if fi, err := os.Stat(dbLine); err == nil {
		dbLine = fmt.Sprintf("%s (%s)", dbLine, humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Fprintf(out, label+"%s\n", "Database:", dbLine)
	if e.cfg.Brand != "" {
		fmt.Fprintf(out, label+"%s\n", "Brand:", e.cfg.Brand)
	}
	fmt.Fprintln(out)

	now := time.Now()
	rows, err := productStatus(e, now)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderStatusTable(rows, now))
	return nil
}

func productStatus(e *env, now time.Time) ([]output.ProductStatus, error) {
	rows := make([]output.ProductStatus, 0, len(e.cfg.Products))
	err := e.engine.Do(func(s *state.Session) error {
		for _, p := range e.cfg.Products {
			product, _, err := p.Resolve()
			if err != nil {
				return err
			}
			last, pinged, err := s.LastPingTime(product)
			if err != nil {
				return err
			}
			pending, err := s.Events(product)
			if err != nil {
				return err
			}
			stateful, err := s.StatefulEvents(product)
			if err != nil {
				return err
			}

			row := output.ProductStatus{
				Product:  fmt.Sprintf("%s (%s)", product, productLabels[product]),
				Pending:  len(pending),
				Stateful: len(stateful),
			}
			if pinged {
				row.LastPing = last
				interval := e.cfg.NoEventsInterval
				if len(pending) > 0 {
					interval = e.cfg.EventsInterval
				}
				if !last.After(now) {
					row.NextDue = last.Add(interval)
				}
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read product state: %w", err)
	}
	return rows, nil
}
