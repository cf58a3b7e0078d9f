package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/access"
)

var grantCmd = &cobra.Command{
	Use:   "grant-machine-access",
	Short: "Open the machine state directory to every local user",
	Long: `Create the machine state directory (machine_dir in the config file) and make
it and its files writable by every local user, so per-user processes can
update the machine deal code. Usually run once, as root, at install time.`,
	Example: `  sudo rlztrack grant-machine-access`,
	Args:    cobra.NoArgs,
	RunE:    runGrant,
}

func runGrant(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	changed, err := access.GrantBroadAccess(cfg.MachineDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if changed {
		fmt.Fprintf(out, "✓ Machine state directory %s is open to all users\n", cfg.MachineDir)
	} else {
		fmt.Fprintf(out, "Machine state directory %s already open to all users\n", cfg.MachineDir)
	}
	return nil
}
