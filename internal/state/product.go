package state

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

// ClearProductState removes everything product left behind on uninstall:
// its events, its ping time and the RLZs of the given points. Emptied keys
// are pruned afterwards. Every step is attempted; failures are joined.
func (s *Session) ClearProductState(product rlz.Product, points []rlz.AccessPoint) error {
	if !product.Valid() {
		return fmt.Errorf("%w: unknown product %d", rlz.ErrInvalidInput, int(product))
	}
	if err := s.check(true); err != nil {
		return err
	}

	errs := []error{
		s.ClearAllEvents(product),
		s.ClearLastPingTime(product),
	}
	for _, p := range points {
		if p == rlz.NoAccessPoint {
			break
		}
		if !p.Supported() {
			continue
		}
		errs = append(errs, s.SetRlz(p, ""))
	}

	root := s.e.root
	for _, sub := range []string{
		rlz.RlzsSubkeyName,
		rlz.EventsSubkeyName,
		rlz.StatefulEventsSubkeyName,
		rlz.PingTimesSubkeyName,
	} {
		errs = append(errs, s.e.store.DeleteIfEmpty(store.Join(root, sub)))
	}
	errs = append(errs, s.e.store.DeleteIfEmpty(root))
	if root != rlz.LibKeyName {
		errs = append(errs, s.e.store.DeleteIfEmpty(rlz.LibKeyName))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to clear product state for %s: %w", product, err)
	}
	return nil
}
