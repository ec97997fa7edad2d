package cli

import (
	"context"
	"fmt"

	"github.com/dmora/codexrun"
)

// Engine is a CLI subprocess engine that adapts a Backend into a
// codexrun.Engine. Each Run spawns one process.
type Engine struct {
	backend Backend
	opts    EngineOptions
}

// Compile-time interface satisfaction check.
var _ codexrun.Engine = (*Engine)(nil)

// NewEngine creates a CLI engine backed by the given Backend.
// Use EngineOption functions to customize buffer sizes and polling.
func NewEngine(backend Backend, opts ...EngineOption) *Engine {
	return &Engine{
		backend: backend,
		opts:    resolveEngineOptions(opts...),
	}
}

// Validate checks that the backend's binary can be resolved.
func (e *Engine) Validate() error {
	spec, err := e.backend.Command(codexrun.ExecArgs{})
	if err != nil {
		return fmt.Errorf("cli: validate: %w", err)
	}
	_, err = ResolveBinary(spec.Binary, e.opts.VendorDir)
	return err
}

// Run builds the command for args and spawns it. A context that is already
// done yields codexrun.ErrAborted before any process is created.
func (e *Engine) Run(ctx context.Context, args codexrun.ExecArgs) (codexrun.LineStream, error) {
	spec, err := e.backend.Command(args)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		e.opts.Logger.Debug("cli: aborted before spawn")
		return nil, codexrun.ErrAborted
	}

	binary, err := ResolveBinary(spec.Binary, e.opts.VendorDir)
	if err != nil {
		return nil, err
	}
	return startProcess(ctx, binary, spec, args.Input, e.opts)
}
