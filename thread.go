package codexrun

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
)

// Thread is a conversation with the agent that spans one or more turns.
//
// The session id is shared by all turns of a thread and is overwritten by
// every thread.started event. Turns on the same Thread are meant to run one
// after another; concurrent turns are safe but race on which id wins.
type Thread struct {
	engine Engine
	client ClientOptions
	opts   ThreadOptions
	id     atomic.Pointer[string]
	logger *slog.Logger
}

func newThread(engine Engine, client ClientOptions, opts ThreadOptions, id string) *Thread {
	t := &Thread{
		engine: engine,
		client: client,
		opts:   opts,
		logger: client.Logger,
	}
	if id != "" {
		t.id.Store(&id)
	}
	return t
}

// ID returns the session id, or "" if no turn has reported one yet.
func (t *Thread) ID() string {
	if p := t.id.Load(); p != nil {
		return *p
	}
	return ""
}

func (t *Thread) setID(id string) {
	t.id.Store(&id)
}

// RunStreamed starts a turn and returns its live event stream. The caller
// must drain Events or call Close. Cancelling ctx kills the codex process.
func (t *Thread) RunStreamed(ctx context.Context, in Input, opts TurnOptions) (*StreamedTurn, error) {
	schema, err := NewOutputSchemaFile(opts.OutputSchema)
	if err != nil {
		return nil, err
	}

	prompt, images := NormalizeInput(in)
	args := t.execArgs(prompt, images, schema.Path())

	logger := t.logger.With("turn", uuid.NewString())
	logger.Debug("codexrun: starting turn", "args", args)

	lines, err := t.engine.Run(ctx, args)
	if err != nil {
		_ = schema.Release()
		logger.Debug("codexrun: engine run failed", "error", err)
		return nil, err
	}

	st := newStreamedTurn(lines, schema, t.setID, logger)
	go st.pump()
	return st, nil
}

// Run executes a turn to completion and returns the aggregated result.
// A turn.failed event yields *TurnFailedError and no Turn.
func (t *Thread) Run(ctx context.Context, in Input, opts TurnOptions) (*Turn, error) {
	st, err := t.RunStreamed(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	var b turnBuilder
	if err := Drain(st, b.observe); err != nil {
		return nil, err
	}
	return b.turn(), nil
}

func (t *Thread) execArgs(prompt string, images []string, schemaPath string) ExecArgs {
	return ExecArgs{
		Input:                 prompt,
		BaseURL:               t.client.BaseURL,
		APIKey:                t.client.APIKey,
		ThreadID:              t.ID(),
		Images:                images,
		Model:                 t.opts.Model,
		SandboxMode:           t.opts.SandboxMode,
		WorkingDirectory:      t.opts.WorkingDirectory,
		AdditionalDirectories: slices.Clone(t.opts.AdditionalDirectories),
		SkipGitRepoCheck:      t.opts.SkipGitRepoCheck,
		OutputSchemaPath:      schemaPath,
		ReasoningEffort:       t.opts.ReasoningEffort,
		NetworkAccess:         t.opts.NetworkAccess,
		WebSearchMode:         t.opts.WebSearchMode,
		WebSearchEnabled:      t.opts.WebSearchEnabled,
		ApprovalPolicy:        t.opts.ApprovalPolicy,
	}
}
