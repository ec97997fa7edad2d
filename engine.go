package codexrun

import "context"

// Engine runs one codex exec invocation per call.
//
// The CLI implementation lives in engine/cli; tests substitute their own.
type Engine interface {
	// Run spawns the process described by args and returns its stdout as a
	// line stream. If ctx is already done, Run returns ErrAborted without
	// creating a process. Cancelling ctx while the stream is live kills the
	// process and ends the stream with ErrAborted.
	Run(ctx context.Context, args ExecArgs) (LineStream, error)
}

// LineStream is the stdout of a running codex process, one JSON line at a
// time.
type LineStream interface {
	// Lines yields stdout lines without their trailing newline. The channel
	// is closed when the process has exited and all output has been read, or
	// when the stream is aborted or closed.
	Lines() <-chan string

	// Err returns the terminal error once Lines is closed: nil on a clean
	// exit, *ExecError on a failed exit, ErrAborted on cancellation, or
	// ErrTerminated after Close.
	Err() error

	// Close abandons the stream, killing the process if it is still
	// running. It blocks until the process has been reaped and is safe to
	// call more than once.
	Close() error
}
