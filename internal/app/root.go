package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string

	// RootCmd is the root command for rlztrack
	RootCmd = &cobra.Command{
		Use:   "rlztrack",
		Short: "Track product promotion events and report them via financial pings",
		Long: `rlztrack keeps the per-user RLZ state of installed products: the RLZ
value of each access point, the ledger of events waiting to be reported, and
the machine deal code. A financial ping reports pending events to the ping
server and stores the RLZ values it sends back.

Installers record events with 'rlztrack record' (or the tiny rlztrack-record
helper). 'rlztrack watch --daemon' pings every configured product when it
is due.

Quick Start:
  1. Add your products to ~/.config/rlztrack/config.toml
  2. rlztrack record T T4 I       # installer: toolbar search box installed
  3. rlztrack watch --daemon      # ping when due
  4. rlztrack status

Examples:
  # Show ping state per product
  rlztrack status

  # List pending events for the toolbar
  rlztrack events T

  # Ping now, even if not due
  rlztrack ping T --force

  # Show the ping parameters without sending
  rlztrack params T`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "rlztrack: product promotion event tracking")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Tip: Run 'rlztrack status' to check ping state.")
			fmt.Fprintln(out, "     Run 'rlztrack --help' for all commands.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/rlztrack/config.toml)")
	RootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "per-user state directory (overrides data_dir in the config file)")

	RootCmd.SuggestionsMinimumDistance = 2

	RootCmd.AddCommand(recordCmd)
	RootCmd.AddCommand(clearEventCmd)
	RootCmd.AddCommand(eventsCmd)
	RootCmd.AddCommand(rlzCmd)
	RootCmd.AddCommand(dccCmd)
	RootCmd.AddCommand(paramsCmd)
	RootCmd.AddCommand(pingCmd)
	RootCmd.AddCommand(applyCmd)
	RootCmd.AddCommand(clearCmd)
	RootCmd.AddCommand(statusCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(grantCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
