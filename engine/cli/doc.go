// Package cli runs codex exec as a subprocess and exposes its stdout as a
// [codexrun.LineStream].
//
// A [Backend] turns [codexrun.ExecArgs] into a [CommandSpec]. [NewEngine]
// wraps a Backend into a [codexrun.Engine]: it resolves the binary (explicit
// path, then PATH, then the vendor directory), wires stdin/stdout/stderr
// through os.Pipe, writes the prompt to stdin, and forwards stdout lines
// until the process exits.
//
// # Cancellation
//
// The context passed to Run is checked before spawning and while the
// process is running. Cancellation kills the process; once the process has
// exited, the remaining buffered output is delivered regardless of the
// context.
//
// # Consumer Obligations
//
// Callers must either drain [codexrun.LineStream.Lines] to completion or
// call Close to release subprocess resources. Failing to do so may leave the
// subprocess running and leak goroutines.
//
// On Windows the binary is launched through cmd /C; killing the stream
// terminates cmd, not necessarily its descendants.
package cli
