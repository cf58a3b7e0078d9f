package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/output"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
)

var (
	recordStateful bool

	recordCmd = &cobra.Command{
		Use:   "record <product> <point> <event>",
		Short: "Record a product event for the next financial ping",
		Long: `Record an event against an access point of a product. The event stays in
the product's pending ledger until a ping response reports it.

An event the server has already acknowledged as stateful is not recorded
again.

Products: T (IE toolbar), P (toolbar notifier), U (pack), D (desktop),
C (Chrome), B (Firefox toolbar), K (QSB), W (webapps), N (Pinyin IME),
V (partner).
Events: I (install), S (set to Google), F (first search), R (report RLS),
A (activate).`,
		Example: `  # Toolbar search box installed
  rlztrack record T T4 I

  # Mark an event as already reported
  rlztrack record C C1 F --stateful`,
		Args: cobra.ExactArgs(3),
		RunE: runRecord,
	}

	clearEventCmd = &cobra.Command{
		Use:     "clear-event <product> <point> <event>",
		Short:   "Remove a pending product event",
		Example: `  rlztrack clear-event T T4 I`,
		Args:    cobra.ExactArgs(3),
		RunE:    runClearEvent,
	}

	eventsCmd = &cobra.Command{
		Use:   "events <product>",
		Short: "List pending and reported events for a product",
		Example: `  rlztrack events T

  # Print the events field exactly as a ping would send it
  rlztrack events T --cgi`,
		Args: cobra.ExactArgs(1),
		RunE: runEvents,
	}
	eventsCgi bool
)

func init() {
	recordCmd.Flags().BoolVar(&recordStateful, "stateful", false, "record into the reported (stateful) ledger instead")
	eventsCmd.Flags().BoolVar(&eventsCgi, "cgi", false, "print the events field instead of a table")
}

func parseRecord(args []string) (rlz.Product, rlz.AccessPoint, rlz.Event, error) {
	product, err := parseProduct(args[0])
	if err != nil {
		return 0, 0, 0, err
	}
	point, err := parsePoint(args[1])
	if err != nil {
		return 0, 0, 0, err
	}
	event, err := parseEvent(args[2])
	if err != nil {
		return 0, 0, 0, err
	}
	return product, point, event, nil
}

func runRecord(cmd *cobra.Command, args []string) error {
	product, point, event, err := parseRecord(args)
	if err != nil {
		return err
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	if recordStateful {
		err = e.engine.RecordStatefulEvent(product, point, event)
	} else {
		err = e.engine.RecordEvent(product, point, event)
	}
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s%s for product %s\n", point.Name(), event.Name(), product.Name())
	return nil
}

func runClearEvent(cmd *cobra.Command, args []string) error {
	product, point, event, err := parseRecord(args)
	if err != nil {
		return err
	}

	e, err := openEnv(logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.engine.ClearEvent(product, point, event); err != nil {
		return fmt.Errorf("failed to clear event: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s%s for product %s\n", point.Name(), event.Name(), product.Name())
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
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
	if eventsCgi {
		cgi, err := e.engine.EventsAsCgi(product)
		if errors.Is(err, state.ErrNoEvents) {
			fmt.Fprintln(out, "No pending events.")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cgi)
		return nil
	}

	var rows []output.EventRow
	err = e.engine.Do(func(s *state.Session) error {
		pending, err := s.Events(product)
		if err != nil {
			return err
		}
		stateful, err := s.StatefulEvents(product)
		if err != nil {
			return err
		}
		for _, r := range pending {
			rows = append(rows, eventRow(r, false))
		}
		for _, r := range stateful {
			rows = append(rows, eventRow(r, true))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	fmt.Fprint(out, output.RenderEventTable(rows))
	return nil
}

func eventRow(r rlz.EventRecord, stateful bool) output.EventRow {
	return output.EventRow{
		Token:    r.Token(),
		Point:    pointLabel(r.Point),
		Event:    eventLabel(r.Event),
		Stateful: stateful,
	}
}
