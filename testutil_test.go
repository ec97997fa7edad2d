package codexrun

import (
	"context"
	"slices"
	"sync"
)

// mockStream is a test double for LineStream.
// Shared across root-package test files.
type mockStream struct {
	lines     chan string
	err       error
	closeOnce sync.Once
	closed    chan struct{}
}

// newMockStream returns a stream that yields lines and then ends with err.
func newMockStream(err error, lines ...string) *mockStream {
	m := newOpenStream(lines...)
	m.err = err
	close(m.lines)
	return m
}

// newOpenStream returns a stream that yields lines and then stays open
// until the consumer gives up.
func newOpenStream(lines ...string) *mockStream {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	return &mockStream{lines: ch, closed: make(chan struct{})}
}

func (m *mockStream) Lines() <-chan string { return m.lines }

func (m *mockStream) Err() error { return m.err }

func (m *mockStream) Close() error {
	m.closeOnce.Do(func() { close(m.closed) })
	return nil
}

func (m *mockStream) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

// mockEngine is a test double for Engine. It records every ExecArgs it
// receives and hands out streams from runFn.
type mockEngine struct {
	mu    sync.Mutex
	calls []ExecArgs
	runFn func(ctx context.Context, args ExecArgs) (LineStream, error)
}

// streamEngine returns an engine that serves the given streams in order.
func streamEngine(streams ...*mockStream) *mockEngine {
	var i int
	return &mockEngine{
		runFn: func(_ context.Context, _ ExecArgs) (LineStream, error) {
			s := streams[i]
			i++
			return s, nil
		},
	}
}

func (e *mockEngine) Run(ctx context.Context, args ExecArgs) (LineStream, error) {
	e.mu.Lock()
	args.Images = slices.Clone(args.Images)
	e.calls = append(e.calls, args)
	e.mu.Unlock()
	return e.runFn(ctx, args)
}

func (e *mockEngine) lastCall() ExecArgs {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[len(e.calls)-1]
}

func (e *mockEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// Wire fixtures.
const (
	lineThreadStarted = `{"type":"thread.started","thread_id":"thread_1"}`
	lineTurnStarted   = `{"type":"turn.started"}`
	lineAgentHello    = `{"type":"item.completed","item":{"type":"agent_message","id":"item_0","text":"hello"}}`
	lineTurnCompleted = `{"type":"turn.completed","usage":{"input_tokens":42,"cached_input_tokens":10,"output_tokens":5}}`
	lineTurnFailed    = `{"type":"turn.failed","error":{"message":"rate limited"}}`
)
