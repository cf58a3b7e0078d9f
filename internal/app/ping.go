package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/financial"
	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/output"
	"github.com/blackwell-systems/rlztrack/internal/ping"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

var (
	paramsRequest bool
	pingForce     bool
	pingDryRun    bool

	paramsCmd = &cobra.Command{
		Use:   "params <product>",
		Short: "Print the ping parameters for a product",
		Long: `Print the parameters the next financial ping would carry for a product:
protocol version, RLZ values of its access points, pending events and the
machine deal code. With --request the full request path is printed, which
needs the product to be configured.`,
		Example: `  rlztrack params T
  rlztrack params T --request`,
		Args: cobra.ExactArgs(1),
		RunE: runParams,
	}

	pingCmd = &cobra.Command{
		Use:   "ping <product>",
		Short: "Send a financial ping for a configured product",
		Long: `Send a financial ping for a product listed in the config file and apply the
response: new RLZ values are stored, reported events are cleared, and the
machine deal code is updated when the server asks.

The ping is only sent when the product is due: 24 hours after the last ping
when events are pending, 7 days otherwise. --force sends at once when events
are pending.`,
		Example: `  rlztrack ping T
  rlztrack ping T --force
  rlztrack ping T --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: runPing,
	}

	applyCmd = &cobra.Command{
		Use:   "apply <product> <file>",
		Short: "Apply a saved ping response to local state",
		Long: `Validate a ping response read from a file ("-" for stdin) and apply it as if
it had just been received. Responses with a bad or missing checksum are
rejected without changing anything.`,
		Example: `  rlztrack apply T response.txt
  curl -s "$URL" | rlztrack apply T -`,
		Args: cobra.ExactArgs(2),
		RunE: runApply,
	}

	clearCmd = &cobra.Command{
		Use:   "clear <product>",
		Short: "Remove all state of an uninstalled product",
		Long: `Clear a product's pending and reported events, its last ping time and the
RLZ values of its access points. Empty keys are removed afterwards. The
access points come from the product's config entry, or all access points
when the product is not configured.`,
		Example: `  rlztrack clear T`,
		Args:    cobra.ExactArgs(1),
		RunE:    runClear,
	}
)

func init() {
	paramsCmd.Flags().BoolVar(&paramsRequest, "request", false, "print the full request path")
	pingCmd.Flags().BoolVar(&pingForce, "force", false, "ping now if events are pending, ignoring the interval")
	pingCmd.Flags().BoolVar(&pingDryRun, "dry-run", false, "print the request instead of sending it")
}

func runParams(cmd *cobra.Command, args []string) error {
	product, err := parseProduct(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	out := cmd.OutOrStdout()
	if paramsRequest {
		req, err := requestFor(e.cfg, product.Name())
		if err != nil {
			return err
		}
		p, err := e.pinger()
		if err != nil {
			return err
		}
		request, err := p.FormRequest(req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, request)
		return nil
	}

	var dcc string
	if d, err := e.openDeal(); err != nil {
		e.log.Debug().Err(err).Msg("deal code unavailable, omitting")
	} else if dcc, err = d.Get(); err != nil {
		return err
	}

	params, err := ping.ParamsFrom(e.engine, product, pointsFor(e.cfg, product), dcc, rlz.MaxCgiLength)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, params)
	return nil
}

func runPing(cmd *cobra.Command, args []string) error {
	product, err := parseProduct(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	req, err := requestFor(e.cfg, product.Name())
	if err != nil {
		return err
	}
	p, err := e.pinger()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if pingDryRun {
		request, err := p.FormRequest(req)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, request)
		return nil
	}

	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	spinner := output.NewSpinner(fmt.Sprintf("Pinging for product %s", product))
	spinner.SetWriter(out)
	spinner.Start()
	res, err := p.SendPing(ctx, req, pingForce)
	if errors.Is(err, financial.ErrNotPingTime) {
		spinner.StopWithMessage(fmt.Sprintf("Product %s is not due a ping", product))
		return nil
	}
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("ping failed: %w", err)
	}
	spinner.StopWithMessage("✓ Ping applied")

	printResult(out, res)
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	product, err := parseProduct(args[0])
	if err != nil {
		return err
	}

	var data []byte
	if args[1] == "-" {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), rlz.MaxPingResponseLength+1))
	} else {
		data, err = os.ReadFile(args[1])
	}
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	res, err := e.parser().ApplyTo(e.engine, product, string(data))
	if err != nil {
		return fmt.Errorf("failed to apply response: %w", err)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	product, err := parseProduct(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.engine.ClearProductState(product, pointsFor(e.cfg, product)); err != nil {
		return fmt.Errorf("failed to clear product %s: %w", product, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared state for product %s\n", product)
	return nil
}

func printResult(w io.Writer, res ping.Result) {
	fmt.Fprintf(w, "  RLZ values set:    %d\n", res.RlzsSet)
	fmt.Fprintf(w, "  Events cleared:    %d\n", res.EventsCleared)
	fmt.Fprintf(w, "  Stateful recorded: %d\n", res.StatefulRecorded)
	if res.Skipped > 0 {
		fmt.Fprintf(w, "  Lines skipped:     %d\n", res.Skipped)
	}
}
