package codex

import (
	"log/slog"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/engine/cli"
)

// Options configures NewClient. Zero values select the defaults.
type Options struct {
	// Path overrides the codex binary. Empty means PATH lookup, then
	// VendorDir.
	Path string

	// VendorDir is searched for a bundled binary when PATH lookup fails.
	VendorDir string

	BaseURL string
	APIKey  string

	// Env replaces the inherited environment when non-nil.
	Env map[string]string

	// Config is the override tree rendered into --config flags.
	Config any

	Logger *slog.Logger
}

// NewClient wires a codex backend into a CLI engine and returns a client
// for it.
func NewClient(opts Options) *codexrun.Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	backend := New(
		WithBinary(opts.Path),
		WithEnv(opts.Env),
		WithConfig(opts.Config),
		WithLogger(logger),
	)
	engine := cli.NewEngine(backend,
		cli.WithVendorDir(opts.VendorDir),
		cli.WithLogger(logger),
	)
	return codexrun.NewClient(engine,
		codexrun.WithBaseURL(opts.BaseURL),
		codexrun.WithAPIKey(opts.APIKey),
		codexrun.WithLogger(logger),
	)
}
