package cli

import (
	"log/slog"
	"time"
)

// Default engine configuration values.
const (
	defaultOutputBuffer  = 100
	defaultScannerBuffer = 1 << 20 // 1 MB
	defaultPollInterval  = 250 * time.Millisecond
)

// EngineOptions holds resolved construction-time configuration for a CLI engine.
// Use NewEngine with EngineOption functions to customize these values.
type EngineOptions struct {
	// OutputBuffer is the channel buffer size for stdout lines.
	OutputBuffer int

	// ScannerBuffer is the maximum line size in bytes for the stdout scanner.
	ScannerBuffer int

	// PollInterval is how often the engine checks whether the process has
	// exited while stdout is still open.
	PollInterval time.Duration

	// VendorDir is searched for a bundled binary laid out as
	// <VendorDir>/<target-triple>/codex/codex when PATH lookup fails.
	VendorDir string

	// Logger receives process lifecycle traces and stderr lines.
	Logger *slog.Logger
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*EngineOptions)

// WithOutputBuffer sets the channel buffer size for stdout lines.
// Values <= 0 are ignored.
func WithOutputBuffer(size int) EngineOption {
	return func(o *EngineOptions) {
		if size > 0 {
			o.OutputBuffer = size
		}
	}
}

// WithScannerBuffer sets the maximum line size in bytes for the stdout scanner.
// Values <= 0 are ignored.
func WithScannerBuffer(size int) EngineOption {
	return func(o *EngineOptions) {
		if size > 0 {
			o.ScannerBuffer = size
		}
	}
}

// WithPollInterval sets the exit-status polling interval.
// Values <= 0 are ignored.
func WithPollInterval(d time.Duration) EngineOption {
	return func(o *EngineOptions) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithVendorDir sets the directory searched for a bundled codex binary.
func WithVendorDir(dir string) EngineOption {
	return func(o *EngineOptions) {
		o.VendorDir = dir
	}
}

// WithLogger sets the engine logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) EngineOption {
	return func(o *EngineOptions) {
		if l != nil {
			o.Logger = l
		}
	}
}

func resolveEngineOptions(opts ...EngineOption) EngineOptions {
	o := EngineOptions{
		OutputBuffer:  defaultOutputBuffer,
		ScannerBuffer: defaultScannerBuffer,
		PollInterval:  defaultPollInterval,
		Logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
