// Package access decides whether the current process may read or write a
// store scope. Scopes are filesystem locations: the directory or database
// file holding that scope's state.
package access

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrDenied is returned by callers when a permission check fails.
var ErrDenied = errors.New("access: denied")

// Checker is consulted before any store operation.
type Checker interface {
	HasAccess(scope string, write bool) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(scope string, write bool) bool

func (f CheckerFunc) HasAccess(scope string, write bool) bool { return f(scope, write) }

// AllowAll grants every request. In-memory stores use it.
var AllowAll Checker = CheckerFunc(func(string, bool) bool { return true })

// Filesystem checks access(2) on the scope path. A scope that does not exist
// yet is judged by its nearest existing ancestor, which is where it would be
// created.
type Filesystem struct{}

func (Filesystem) HasAccess(scope string, write bool) bool {
	if scope == "" || scope == ":memory:" {
		return true
	}
	mode := uint32(unix.R_OK)
	if write {
		mode |= unix.W_OK
	}

	p := filepath.Clean(scope)
	for {
		if _, err := os.Stat(p); err == nil {
			return unix.Access(p, mode) == nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return false
		}
		p = parent
	}
}

// Require returns ErrDenied wrapped with the scope when c refuses.
func Require(c Checker, scope string, write bool) error {
	if c.HasAccess(scope, write) {
		return nil
	}
	kind := "read"
	if write {
		kind = "write"
	}
	return fmt.Errorf("%s access to %s: %w", kind, scope, ErrDenied)
}

const broadDirMode fs.FileMode = 0o777 | fs.ModeSticky

// GrantBroadAccess creates dir if needed and opens it and the files directly
// inside it to every local user, so per-user processes can maintain
// machine-wide state. This is a one-time provisioning step that normally
// runs with elevated rights. It reports whether anything changed.
func GrantBroadAccess(dir string) (bool, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create machine state directory: %w", err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return false, fmt.Errorf("failed to stat machine state directory: %w", err)
	}

	changed := false
	if info.Mode()&(fs.ModePerm|fs.ModeSticky) != broadDirMode {
		if err := os.Chmod(dir, broadDirMode); err != nil {
			return false, fmt.Errorf("failed to open machine state directory: %w", err)
		}
		changed = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return changed, fmt.Errorf("failed to list machine state directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return changed, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		if fi.Mode().Perm()&0o666 == 0o666 {
			continue
		}
		if err := os.Chmod(filepath.Join(dir, e.Name()), fi.Mode().Perm()|0o666); err != nil {
			return changed, fmt.Errorf("failed to open %s: %w", e.Name(), err)
		}
		changed = true
	}

	return changed, nil
}
