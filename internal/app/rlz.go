package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/output"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

var (
	rlzCmd = &cobra.Command{
		Use:   "rlz",
		Short: "Read or write access point RLZ values",
		Long: `RLZ values are normally set by ping responses. These commands read them, or
set one by hand. Values are normalized: characters outside [A-Za-z0-9_.-]
become '.', and values longer than 20 characters are rejected. Setting an
empty value deletes it.`,
	}

	rlzGetCmd = &cobra.Command{
		Use:     "get <point>",
		Short:   "Print the RLZ value of an access point",
		Example: `  rlztrack rlz get T4`,
		Args:    cobra.ExactArgs(1),
		RunE:    runRlzGet,
	}

	rlzSetCmd = &cobra.Command{
		Use:   "set <point> [value]",
		Short: "Set (or with no value, delete) the RLZ value of an access point",
		Example: `  rlztrack rlz set T4 1T4ADBF_enUS123

  # Delete the value
  rlztrack rlz set T4`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runRlzSet,
	}

	rlzListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every stored RLZ value",
		Args:  cobra.NoArgs,
		RunE:  runRlzList,
	}
)

func init() {
	rlzCmd.AddCommand(rlzGetCmd)
	rlzCmd.AddCommand(rlzSetCmd)
	rlzCmd.AddCommand(rlzListCmd)
}

func runRlzGet(cmd *cobra.Command, args []string) error {
	point, err := parsePoint(args[0])
	if err != nil {
		return err
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	value, err := e.engine.Rlz(point)
	if err != nil {
		return fmt.Errorf("failed to read RLZ for %s: %w", point, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runRlzSet(cmd *cobra.Command, args []string) error {
	point, err := parsePoint(args[0])
	if err != nil {
		return err
	}
	var value string
	if len(args) == 2 {
		value = args[1]
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.engine.SetRlz(point, value); err != nil {
		return fmt.Errorf("failed to set RLZ for %s: %w", point, err)
	}

	out := cmd.OutOrStdout()
	if value == "" {
		fmt.Fprintf(out, "Deleted RLZ for %s\n", point)
		return nil
	}
	stored, err := e.engine.Rlz(point)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s = %s\n", point, stored)
	return nil
}

func runRlzList(cmd *cobra.Command, args []string) error {
	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	var rows []output.RlzRow
	for _, point := range rlz.AccessPoints() {
		if !point.Supported() {
			continue
		}
		value, err := e.engine.Rlz(point)
		if err != nil {
			return fmt.Errorf("failed to read RLZ for %s: %w", point, err)
		}
		if value == "" {
			continue
		}
		rows = append(rows, output.RlzRow{Point: point.Name(), Label: pointLabel(point), Value: value})
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderRlzTable(rows))
	return nil
}
