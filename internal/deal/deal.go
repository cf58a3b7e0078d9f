// Package deal manages the machine deal code (DCC): a machine-wide code an
// OEM or the server assigns, reported with every financial ping.
//
// The code lives in the machine store scope, which is shared by every user
// on the host and guarded by its own lock.
package deal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/rlztrack/internal/access"
	"github.com/blackwell-systems/rlztrack/internal/lock"
	"github.com/blackwell-systems/rlztrack/internal/ping"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/store"
)

// Code reads and writes the machine deal code.
type Code struct {
	store  *store.Store
	locker lock.Locker
	access access.Checker
	scope  string
	log    zerolog.Logger
}

// Option configures a Code.
type Option func(*Code)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Code) { c.log = l }
}

func WithAccess(a access.Checker) Option {
	return func(c *Code) { c.access = a }
}

// New returns a Code over the machine store st guarded by l.
func New(st *store.Store, l lock.Locker, opts ...Option) (*Code, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if l == nil {
		return nil, fmt.Errorf("locker cannot be nil")
	}
	c := &Code{
		store:  st,
		locker: l,
		access: access.Filesystem{},
		scope:  st.Path(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Set stores dcc after normalizing it. Codes longer than rlz.MaxDccLength
// are rejected. An empty code clears the stored one.
func (c *Code) Set(dcc string) error {
	normalized, err := rlz.PrepareDealCode(dcc)
	if err != nil {
		return fmt.Errorf("cannot set deal code: %w", err)
	}
	return lock.With(c.locker, func(*lock.Token) error {
		if err := access.Require(c.access, c.scope, true); err != nil {
			return err
		}
		return c.write(normalized)
	})
}

func (c *Code) write(normalized string) error {
	if normalized == "" {
		if err := c.store.Delete(rlz.LibKeyName, rlz.DccValueName); err != nil {
			return fmt.Errorf("failed to clear deal code: %w", err)
		}
		return nil
	}
	if err := c.store.Write(rlz.LibKeyName, rlz.DccValueName, []byte(normalized)); err != nil {
		return fmt.Errorf("failed to write deal code: %w", err)
	}
	return nil
}

// Get returns the stored code, or "" when none is set. A stored value that
// fails validation is reported as unset.
func (c *Code) Get() (string, error) {
	if err := access.Require(c.access, c.scope, false); err != nil {
		return "", err
	}
	return c.read()
}

func (c *Code) read() (string, error) {
	data, err := c.store.Read(rlz.LibKeyName, rlz.DccValueName)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read deal code: %w", err)
	}
	dcc := string(data)
	if len(dcc) > rlz.MaxDccLength || dcc != normalize(dcc) {
		c.log.Warn().Str("value", dcc).Msg("ignoring malformed stored deal code")
		return "", nil
	}
	return dcc, nil
}

// AsCgi returns "dcc=<code>", or "" when no code is stored.
func (c *Code) AsCgi() (string, error) {
	dcc, err := c.Get()
	if err != nil || dcc == "" {
		return "", err
	}
	return rlz.DccCgiVariable + "=" + dcc, nil
}

// Clear removes the stored code.
func (c *Code) Clear() error {
	return c.Set("")
}

// NewCodeFromResponse reports the code a validated ping response asks the
// machine to adopt. A response that echoes a code other than the stored one
// was meant for different state and yields no new code.
func (c *Code) NewCodeFromResponse(response string) (code string, ok bool, err error) {
	end, err := ping.Validate(response)
	if err != nil {
		return "", false, err
	}
	stored, err := c.Get()
	if err != nil {
		return "", false, err
	}
	return c.newCode(response[:end], stored)
}

func (c *Code) newCode(response, stored string) (string, bool, error) {
	if echo, found := extract(response, rlz.DccCgiVariable); found && echo != stored {
		c.log.Debug().Str("echo", echo).Str("stored", stored).Msg("deal code echo does not match, ignoring response")
		return "", false, nil
	}
	next, found := extract(response, rlz.SetDccResponseVariable)
	if !found || next == stored {
		return "", false, nil
	}
	if len(next) > rlz.MaxDccLength {
		c.log.Debug().Int("length", len(next)).Msg("new deal code too long, ignoring")
		return "", false, nil
	}
	return normalize(next), true, nil
}

// SetFromResponse adopts the new code from a ping response, if it carries
// one. The read-compare-write runs under the machine lock.
func (c *Code) SetFromResponse(response string) error {
	end, err := ping.Validate(response)
	if err != nil {
		return err
	}
	// Lines after the checksum trailer are not covered by it.
	body := response[:end]
	return lock.With(c.locker, func(*lock.Token) error {
		if err := access.Require(c.access, c.scope, true); err != nil {
			return err
		}
		stored, err := c.read()
		if err != nil {
			return err
		}
		next, ok, err := c.newCode(body, stored)
		if err != nil || !ok {
			return err
		}
		c.log.Info().Str("dcc", next).Msg("deal code updated from ping response")
		return c.write(next)
	})
}

// extract finds the first line "<name>: <value>" and returns the value up
// to the first whitespace.
func extract(response, name string) (string, bool) {
	prefix := name + ":"
	for _, line := range strings.Split(response, "\n") {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		value := strings.TrimLeft(line[len(prefix):], " \t")
		if i := strings.IndexAny(value, " \t\r\n"); i >= 0 {
			value = value[:i]
		}
		return value, true
	}
	return "", false
}

func normalize(dcc string) string {
	out := []byte(dcc)
	for i := range out {
		if !rlz.IsGoodChar(out[i]) {
			out[i] = '.'
		}
	}
	return string(out)
}
