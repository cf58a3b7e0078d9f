// Package config provides configuration file parsing for rlztrack.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

// FileName is the config file looked up inside Dir().
const FileName = "config.toml"

// Defaults for values the file leaves unset.
const (
	DefaultMachineDir       = "/var/lib/rlztrack"
	DefaultLockTimeout      = 5 * time.Second
	DefaultPingTimeout      = 30 * time.Second
	DefaultCheckInterval    = 1 * time.Hour
	DefaultEventsInterval   = 24 * time.Hour
	DefaultNoEventsInterval = 7 * 24 * time.Hour
	DefaultRetries          = 3
)

// Dir returns the rlztrack config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/rlztrack if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the per-user state directory, respecting XDG_DATA_HOME.
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, "rlztrack"), nil
}

// Product is one product the daemon pings for.
type Product struct {
	Product          string   `toml:"product"`
	AccessPoints     []string `toml:"access_points"`
	Signature        string   `toml:"signature"`
	Brand            string   `toml:"brand"`
	ID               string   `toml:"id"`
	Lang             string   `toml:"lang"`
	ExcludeMachineID bool     `toml:"exclude_machine_id"`
}

// Resolve maps the product and access point codes to their values.
func (p Product) Resolve() (rlz.Product, []rlz.AccessPoint, error) {
	product, ok := rlz.ProductFromName(p.Product)
	if !ok {
		return 0, nil, fmt.Errorf("%w: unknown product %q", rlz.ErrInvalidInput, p.Product)
	}
	points := make([]rlz.AccessPoint, 0, len(p.AccessPoints))
	for _, name := range p.AccessPoints {
		point, ok := rlz.AccessPointFromName(name)
		if !ok || point == rlz.NoAccessPoint {
			return 0, nil, fmt.Errorf("%w: unknown access point %q for product %s", rlz.ErrInvalidInput, name, p.Product)
		}
		points = append(points, point)
	}
	return product, points, nil
}

// Config is the resolved rlztrack configuration.
type Config struct {
	DataDir          string
	MachineDir       string
	Brand            string
	ServerURL        string
	LockTimeout      time.Duration
	PingTimeout      time.Duration
	CheckInterval    time.Duration
	EventsInterval   time.Duration
	NoEventsInterval time.Duration
	Retries          uint
	Products         []Product
}

type fileConfig struct {
	DataDir          string    `toml:"data_dir"`
	MachineDir       string    `toml:"machine_dir"`
	Brand            string    `toml:"brand"`
	ServerURL        string    `toml:"server_url"`
	LockTimeout      string    `toml:"lock_timeout"`
	PingTimeout      string    `toml:"ping_timeout"`
	CheckInterval    string    `toml:"check_interval"`
	EventsInterval   string    `toml:"events_interval"`
	NoEventsInterval string    `toml:"no_events_interval"`
	Retries          uint      `toml:"retries"`
	Products         []Product `toml:"products"`
}

// Default returns the configuration used when no file exists.
func Default() (*Config, error) {
	data, err := DataDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		DataDir:          data,
		MachineDir:       DefaultMachineDir,
		LockTimeout:      DefaultLockTimeout,
		PingTimeout:      DefaultPingTimeout,
		CheckInterval:    DefaultCheckInterval,
		EventsInterval:   DefaultEventsInterval,
		NoEventsInterval: DefaultNoEventsInterval,
		Retries:          DefaultRetries,
	}, nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the config file at path over the defaults. If the file does
// not exist, the defaults are returned without an error.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %s", path, undecoded[0])
	}

	if meta.IsDefined("data_dir") {
		cfg.DataDir = expandHome(strings.TrimSpace(raw.DataDir))
	}
	if meta.IsDefined("machine_dir") {
		cfg.MachineDir = expandHome(strings.TrimSpace(raw.MachineDir))
	}
	if meta.IsDefined("brand") {
		cfg.Brand = strings.TrimSpace(raw.Brand)
	}
	if meta.IsDefined("server_url") {
		cfg.ServerURL = strings.TrimSpace(raw.ServerURL)
	}
	if meta.IsDefined("retries") {
		cfg.Retries = raw.Retries
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"lock_timeout", raw.LockTimeout, &cfg.LockTimeout},
		{"ping_timeout", raw.PingTimeout, &cfg.PingTimeout},
		{"check_interval", raw.CheckInterval, &cfg.CheckInterval},
		{"events_interval", raw.EventsInterval, &cfg.EventsInterval},
		{"no_events_interval", raw.NoEventsInterval, &cfg.NoEventsInterval},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	cfg.Products = raw.Products
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the daemon could not run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.MachineDir == "" {
		return fmt.Errorf("machine_dir cannot be empty")
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"lock_timeout", c.LockTimeout},
		{"ping_timeout", c.PingTimeout},
		{"check_interval", c.CheckInterval},
		{"events_interval", c.EventsInterval},
		{"no_events_interval", c.NoEventsInterval},
	} {
		if d.v <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}
	if c.Brand != "" {
		if normalized := rlz.Normalize(c.Brand); normalized != c.Brand {
			return fmt.Errorf("brand %q contains characters not allowed in a key name", c.Brand)
		}
	}
	seen := make(map[string]bool)
	for i, p := range c.Products {
		if _, _, err := p.Resolve(); err != nil {
			return fmt.Errorf("products[%d]: %w", i, err)
		}
		if p.Signature == "" {
			return fmt.Errorf("products[%d]: signature is required", i)
		}
		if seen[p.Product] {
			return fmt.Errorf("products[%d]: duplicate product %q", i, p.Product)
		}
		seen[p.Product] = true
	}
	return nil
}

// Product returns the configured entry for a product code.
func (c *Config) Product(code string) (Product, bool) {
	for _, p := range c.Products {
		if p.Product == code {
			return p, true
		}
	}
	return Product{}, false
}

// UserStorePath is the per-user state database.
func (c *Config) UserStorePath() string { return filepath.Join(c.DataDir, "rlz.db") }

// UserLockPath guards the per-user store.
func (c *Config) UserLockPath() string { return filepath.Join(c.DataDir, "rlz.lock") }

// MachineStorePath is the machine-wide database holding the deal code.
func (c *Config) MachineStorePath() string { return filepath.Join(c.MachineDir, "machine.db") }

// MachineLockPath guards the machine store.
func (c *Config) MachineLockPath() string { return filepath.Join(c.MachineDir, "machine.lock") }

// PIDPath is the daemon's PID file.
func (c *Config) PIDPath() string { return filepath.Join(c.DataDir, "watch.pid") }

// LogPath is where the daemon writes its log.
func (c *Config) LogPath() string { return filepath.Join(c.DataDir, "watch.log") }

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
