package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/deal"
	"github.com/blackwell-systems/rlztrack/internal/logging"
)

var (
	dccCmd = &cobra.Command{
		Use:   "dcc",
		Short: "Read or write the machine deal code",
		Long: `The machine deal code (DCC) is shared by every user on the machine and is
stored under the machine state directory. Ping responses can replace it.`,
	}

	dccGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Print the machine deal code",
		Args:  cobra.NoArgs,
		RunE:  runDccGet,
	}

	dccSetCmd = &cobra.Command{
		Use:   "set <code>",
		Short: "Set the machine deal code",
		Example: `  rlztrack dcc set dcc_value

  # Clear the code
  rlztrack dcc set ""`,
		Args: cobra.ExactArgs(1),
		RunE: runDccSet,
	}

	dccIDCmd = &cobra.Command{
		Use:   "machine-id",
		Short: "Print the machine id sent with pings that report events",
		Args:  cobra.NoArgs,
		RunE:  runDccMachineID,
	}
)

func init() {
	dccCmd.AddCommand(dccGetCmd)
	dccCmd.AddCommand(dccSetCmd)
	dccCmd.AddCommand(dccIDCmd)
}

func runDccGet(cmd *cobra.Command, args []string) error {
	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	d, err := e.openDeal()
	if err != nil {
		return err
	}
	code, err := d.Get()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), code)
	return nil
}

func runDccSet(cmd *cobra.Command, args []string) error {
	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	d, err := e.openDeal()
	if err != nil {
		return err
	}
	if err := d.Set(args[0]); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	code, err := d.Get()
	if err != nil {
		return err
	}
	if code == "" {
		fmt.Fprintln(out, "Deal code cleared")
		return nil
	}
	fmt.Fprintf(out, "Deal code set to %s\n", code)
	return nil
}

func runDccMachineID(cmd *cobra.Command, args []string) error {
	id, err := deal.MachineID()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
