package codexrun

import (
	"errors"
	"fmt"

	"github.com/dmora/codexrun/internal/errfmt"
)

// Sentinel errors for engine and thread operations.
var (
	// ErrUnavailable indicates the codex binary could not be located.
	ErrUnavailable = errors.New("codexrun: codex binary unavailable")

	// ErrAborted indicates the turn was cancelled through its context,
	// either before the process was spawned or while output was streaming.
	ErrAborted = errors.New("codexrun: exec aborted")

	// ErrTerminated indicates the stream was closed by its consumer before
	// the process finished.
	ErrTerminated = errors.New("codexrun: stream terminated")

	// ErrInvalidConfigRoot indicates the config override tree is not a map.
	ErrInvalidConfigRoot = errors.New("codexrun: config overrides must be a plain object")

	// ErrInvalidConfigKey indicates an empty key somewhere in the config
	// override tree.
	ErrInvalidConfigKey = errors.New("codexrun: config override keys must be non-empty strings")

	// ErrInvalidOutputSchema indicates the output schema is not a JSON object.
	ErrInvalidOutputSchema = errors.New("codexrun: output schema must be a plain JSON object")
)

// UnsupportedPlatformError reports a GOOS/GOARCH pair with no vendored
// codex build.
type UnsupportedPlatformError struct {
	OS   string
	Arch string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("codexrun: unsupported platform: %s (%s)", e.OS, e.Arch)
}

// ConfigNumberError reports a non-finite number in the config override tree.
type ConfigNumberError struct {
	Path string
}

func (e *ConfigNumberError) Error() string {
	return fmt.Sprintf("codexrun: config override at %s must be a finite number", e.Path)
}

// ConfigValueError reports a value that has no TOML literal form, such as a
// null array element or an arbitrary Go type.
type ConfigValueError struct {
	Path  string
	Value string
}

func (e *ConfigValueError) Error() string {
	return fmt.Sprintf("codexrun: unsupported config override value at %s: %s", e.Path, e.Value)
}

// InvalidEventError reports a stdout line that is not a valid event.
// Line carries the offending raw text.
type InvalidEventError struct {
	Line string
	Err  error
}

func (e *InvalidEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codexrun: failed to parse event: %s: %v", errfmt.Truncate(e.Line), e.Err)
	}
	return "codexrun: failed to parse event: " + errfmt.Truncate(e.Line)
}

func (e *InvalidEventError) Unwrap() error { return e.Err }

// ExecError represents a codex process that did not exit successfully.
//
// Code semantics: positive = exit status, -1 = killed by a signal.
// Detail is "code N" or "signal". Stderr holds everything the process
// wrote to its diagnostic stream.
type ExecError struct {
	Code   int
	Detail string
	Stderr string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("codexrun: codex exec exited with %s: %s", e.Detail, errfmt.Truncate(e.Stderr))
}

// ExitCode extracts the exit code from an error chain containing *ExecError.
// Returns (0, false) if the error does not contain an ExecError.
func ExitCode(err error) (int, bool) {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Code, true
	}
	return 0, false
}

// TurnFailedError carries the message of a turn.failed event.
type TurnFailedError struct {
	Message string
}

func (e *TurnFailedError) Error() string {
	return "codexrun: turn failed: " + e.Message
}

// StreamError reports a child pipe that could not be set up.
type StreamError struct {
	Stream string
	Err    error
}

func (e *StreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("codexrun: child process missing %s: %v", e.Stream, e.Err)
	}
	return "codexrun: child process missing " + e.Stream
}

func (e *StreamError) Unwrap() error { return e.Err }
