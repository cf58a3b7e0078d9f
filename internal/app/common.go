package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/blackwell-systems/rlztrack/internal/config"
	"github.com/blackwell-systems/rlztrack/internal/deal"
	"github.com/blackwell-systems/rlztrack/internal/financial"
	"github.com/blackwell-systems/rlztrack/internal/lock"
	"github.com/blackwell-systems/rlztrack/internal/logging"
	"github.com/blackwell-systems/rlztrack/internal/ping"
	"github.com/blackwell-systems/rlztrack/internal/rlz"
	"github.com/blackwell-systems/rlztrack/internal/state"
	"github.com/blackwell-systems/rlztrack/internal/store"
	"github.com/blackwell-systems/rlztrack/internal/transport"
)

// env is everything a command needs: config, logger, and the opened
// per-user state. The machine store is opened on demand.
type env struct {
	cfg     *config.Config
	cfgPath string
	log     zerolog.Logger

	user   *store.Store
	engine *state.Engine

	machine *store.Store
	deal    *deal.Code
}

// resolveConfigPath returns the --config flag value or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	p, err := config.Path()
	if err != nil {
		return "", fmt.Errorf("failed to get config path: %w", err)
	}
	return p, nil
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig() (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, path, nil
}

func openEnv(profile logging.Profile) (*env, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logging.Configure(profile)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	user, err := store.Open(cfg.UserStorePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	engine, err := state.New(user, lock.NewFile(cfg.UserLockPath(), cfg.LockTimeout),
		state.WithLogger(log),
		state.WithBrand(cfg.Brand),
	)
	if err != nil {
		user.Close()
		return nil, err
	}
	return &env{cfg: cfg, cfgPath: path, log: log, user: user, engine: engine}, nil
}

func (e *env) Close() error {
	var errs []error
	if e.machine != nil {
		errs = append(errs, e.machine.Close())
	}
	errs = append(errs, e.user.Close())
	return errors.Join(errs...)
}

// openDeal opens the machine store holding the deal code.
func (e *env) openDeal() (*deal.Code, error) {
	if e.deal != nil {
		return e.deal, nil
	}
	if _, err := os.Stat(e.cfg.MachineDir); err != nil {
		return nil, fmt.Errorf("machine state directory %s unavailable (run 'rlztrack grant-machine-access'): %w", e.cfg.MachineDir, err)
	}
	st, err := store.Open(e.cfg.MachineStorePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open machine database: %w", err)
	}
	d, err := deal.New(st, lock.NewFile(e.cfg.MachineLockPath(), e.cfg.LockTimeout), deal.WithLogger(e.log))
	if err != nil {
		st.Close()
		return nil, err
	}
	e.machine = st
	e.deal = d
	return d, nil
}

// parser returns a response parser. The deal code is updated from
// responses when the machine store can be opened.
func (e *env) parser() *ping.Parser {
	opts := []ping.Option{ping.WithLogger(e.log)}
	if d, err := e.openDeal(); err != nil {
		e.log.Warn().Err(err).Msg("deal code updates disabled")
	} else {
		opts = append(opts, ping.WithDeal(d))
	}
	return ping.NewParser(opts...)
}

// pinger wires the transport, deal code and parser into a financial pinger.
func (e *env) pinger() (*financial.Pinger, error) {
	client, err := transport.New(e.cfg.ServerURL, e.cfg.PingTimeout,
		transport.WithRetries(e.cfg.Retries),
		transport.WithLogger(e.log),
	)
	if err != nil {
		return nil, err
	}

	opts := []financial.Option{
		financial.WithSender(client),
		financial.WithParser(e.parser()),
		financial.WithMachineID(deal.MachineID),
		financial.WithIntervals(e.cfg.EventsInterval, e.cfg.NoEventsInterval),
		financial.WithLogger(e.log),
	}
	if e.deal != nil {
		opts = append(opts, financial.WithDeal(e.deal))
	}
	return financial.New(e.engine, opts...), nil
}

// requests converts the configured products into ping requests.
func requests(cfg *config.Config) ([]financial.Request, error) {
	out := make([]financial.Request, 0, len(cfg.Products))
	for _, p := range cfg.Products {
		req, err := toRequest(p)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func toRequest(p config.Product) (financial.Request, error) {
	product, points, err := p.Resolve()
	if err != nil {
		return financial.Request{}, err
	}
	return financial.Request{
		Product:          product,
		Points:           points,
		Signature:        p.Signature,
		Brand:            p.Brand,
		ID:               p.ID,
		Lang:             p.Lang,
		ExcludeMachineID: p.ExcludeMachineID,
	}, nil
}

// requestFor returns the configured request for a product code.
func requestFor(cfg *config.Config, code string) (financial.Request, error) {
	p, ok := cfg.Product(code)
	if !ok {
		return financial.Request{}, fmt.Errorf("product %q is not configured (add it to the products list in the config file)", code)
	}
	return toRequest(p)
}

// pointsFor returns the access points configured for product, or every
// access point when the product is not configured.
func pointsFor(cfg *config.Config, product rlz.Product) []rlz.AccessPoint {
	if p, ok := cfg.Product(product.Name()); ok {
		if _, points, err := p.Resolve(); err == nil && len(points) > 0 {
			return points
		}
	}
	return rlz.AccessPoints()
}

func parseProduct(arg string) (rlz.Product, error) {
	p, ok := rlz.ProductFromName(arg)
	if !ok {
		return 0, fmt.Errorf("%w: unknown product %q (one of %s)", rlz.ErrInvalidInput, arg, productCodes())
	}
	return p, nil
}

func parsePoint(arg string) (rlz.AccessPoint, error) {
	p, ok := rlz.AccessPointFromName(arg)
	if !ok || p == rlz.NoAccessPoint {
		return rlz.NoAccessPoint, fmt.Errorf("%w: unknown access point %q", rlz.ErrInvalidInput, arg)
	}
	return p, nil
}

func parseEvent(arg string) (rlz.Event, error) {
	ev, ok := rlz.EventFromName(arg)
	if !ok || ev == rlz.InvalidEvent {
		return rlz.InvalidEvent, fmt.Errorf("%w: unknown event %q (one of I, S, F, R, A)", rlz.ErrInvalidInput, arg)
	}
	return ev, nil
}

func productCodes() string {
	var codes []string
	for p := rlz.IEToolbar; p.Valid(); p++ {
		codes = append(codes, p.Name())
	}
	return strings.Join(codes, ", ")
}

var pointLabels = map[rlz.AccessPoint]string{
	rlz.IEDefaultSearch: "IE default search",
	rlz.IEHomePage:      "IE home page",
	rlz.IETBSearchBox:   "IE toolbar search box",
	rlz.QuickSearchBox:  "Quick search box",
	rlz.GDDeskband:      "Desktop deskband",
	rlz.GDSearchGadget:  "Desktop search gadget",
	rlz.GDWebServer:     "Desktop web server",
	rlz.GDOutlook:       "Desktop Outlook",
	rlz.ChromeOmnibox:   "Chrome omnibox",
	rlz.ChromeHomePage:  "Chrome home page",
	rlz.FFTB2Box:        "Firefox toolbar 2 box",
	rlz.FFTB3Box:        "Firefox toolbar 3 box",
	rlz.PinyinIMEBHO:    "Pinyin IME",
	rlz.IGoogleWebpage:  "iGoogle",
	rlz.FFHomePage:      "Firefox home page",
	rlz.FFSearchBox:     "Firefox search box",
	rlz.IEBrowsedPage:   "IE browsed page",
	rlz.QSBWinBox:       "QSB Windows box",
	rlz.WebappsCalendar: "Calendar",
	rlz.WebappsDocs:     "Docs",
	rlz.WebappsGmail:    "Gmail",
	rlz.IETBLinkdoctor:  "IE toolbar linkdoctor",
	rlz.FFTBLinkdoctor:  "Firefox toolbar linkdoctor",
	rlz.IETB7SearchBox:  "IE toolbar 7 search box",
	rlz.TB8SearchBox:    "Toolbar 8 search box",
	rlz.ChromeFrame:     "Chrome Frame",
	rlz.PartnerAP1:      "Partner 1",
	rlz.PartnerAP2:      "Partner 2",
	rlz.PartnerAP3:      "Partner 3",
	rlz.PartnerAP4:      "Partner 4",
	rlz.PartnerAP5:      "Partner 5",
}

func pointLabel(p rlz.AccessPoint) string {
	if label, ok := pointLabels[p]; ok {
		return label
	}
	return p.String()
}

var eventLabels = map[rlz.Event]string{
	rlz.Install:     "install",
	rlz.SetToGoogle: "set to google",
	rlz.FirstSearch: "first search",
	rlz.ReportRLS:   "report rls",
	rlz.Activate:    "activate",
}

func eventLabel(e rlz.Event) string {
	if label, ok := eventLabels[e]; ok {
		return label
	}
	return e.String()
}
