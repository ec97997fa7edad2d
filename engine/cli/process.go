package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dmora/codexrun"
)

// process implements codexrun.LineStream for one codex exec invocation.
//
// Goroutines: a waiter reaps the child and closes exited; a stdout reader
// feeds readCh; a stderr reader buffers diagnostics; a stdin writer
// delivers the prompt. run owns the select loop and is the only writer of
// termErr.
type process struct {
	cmd    *exec.Cmd
	opts   EngineOptions
	logger *slog.Logger

	stdin  *os.File // write end, owned by the stdin writer
	stdout *os.File // read end
	stderr *os.File // read end

	out    chan string
	readCh chan string
	quit   chan struct{} // closed after exit; unblocks the stdout reader

	exited  chan struct{}
	waitErr error // set before exited closes

	wg         sync.WaitGroup
	scanErr    error  // set before readCh closes
	stderrText string // set by the stderr reader before wg.Done
	stdinErr   error  // set by the stdin writer before wg.Done

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	termErr  error
}

var _ codexrun.LineStream = (*process)(nil)

// pipePair is one os.Pipe assigned to a child stream.
type pipePair struct {
	r, w *os.File
}

func openPipes() (stdin, stdout, stderr pipePair, err error) {
	names := [3]string{"stdin", "stdout", "stderr"}
	var pairs [3]pipePair
	for i := range pairs {
		r, w, perr := os.Pipe()
		if perr != nil {
			for _, p := range pairs[:i] {
				_ = p.r.Close()
				_ = p.w.Close()
			}
			return pipePair{}, pipePair{}, pipePair{}, &codexrun.StreamError{Stream: names[i], Err: perr}
		}
		pairs[i] = pipePair{r: r, w: w}
	}
	return pairs[0], pairs[1], pairs[2], nil
}

// startProcess spawns binary and begins streaming its stdout. input is
// written to stdin in full, then stdin is closed.
func startProcess(ctx context.Context, binary string, spec CommandSpec, input string, opts EngineOptions) (*process, error) {
	inPipe, outPipe, errPipe, err := openPipes()
	if err != nil {
		return nil, err
	}

	cmd := command(binary, spec.Args)
	cmd.Env = spec.Environ()
	cmd.Stdin = inPipe.r
	cmd.Stdout = outPipe.w
	cmd.Stderr = errPipe.w

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{inPipe.r, inPipe.w, outPipe.r, outPipe.w, errPipe.r, errPipe.w} {
			_ = f.Close()
		}
		return nil, fmt.Errorf("cli: start: %w", err)
	}
	// The child holds its own copies of these ends.
	_ = inPipe.r.Close()
	_ = outPipe.w.Close()
	_ = errPipe.w.Close()

	logger := opts.Logger.With("pid", cmd.Process.Pid)
	logger.Debug("cli: process spawned", "binary", binary, "argc", len(spec.Args))

	p := &process{
		cmd:    cmd,
		opts:   opts,
		logger: logger,
		stdin:  inPipe.w,
		stdout: outPipe.r,
		stderr: errPipe.r,
		out:    make(chan string, opts.OutputBuffer),
		readCh: make(chan string, opts.OutputBuffer),
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go p.waitLoop()
	p.wg.Add(3)
	go p.captureStderr()
	go p.readStdout()
	go p.writeStdin(input)
	go p.run(ctx)
	return p, nil
}

// Lines returns the stdout line channel.
func (p *process) Lines() <-chan string {
	return p.out
}

// Err returns the terminal error, or nil if still running.
func (p *process) Err() error {
	select {
	case <-p.done:
		return p.termErr
	default:
		return nil
	}
}

// Close kills the process if it is still running and blocks until every
// goroutine has exited. Safe to call multiple times.
func (p *process) Close() error {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
	return nil
}

// run drives the stream and records the terminal error.
func (p *process) run(ctx context.Context) {
	err := p.stream(ctx)
	p.termErr = err
	p.logger.Debug("cli: stream finished", "error", err)
	close(p.done)
	close(p.out)
}

// stream forwards stdout lines in two phases. Phase A races the next line
// against cancellation, Close and the exit poll. Once stdout has closed or
// the process has exited, phase B drains the remaining lines without
// watching ctx.
func (p *process) stream(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	exitSeen := false
phaseA:
	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("cli: aborted during stream")
			p.reap(true)
			return codexrun.ErrAborted
		case <-p.stop:
			p.reap(true)
			return codexrun.ErrTerminated
		case line, ok := <-p.readCh:
			if !ok {
				break phaseA
			}
			select {
			case p.out <- line:
			case <-ctx.Done():
				p.logger.Debug("cli: aborted during stream")
				p.reap(true)
				return codexrun.ErrAborted
			case <-p.stop:
				p.reap(true)
				return codexrun.ErrTerminated
			}
		case <-ticker.C:
			select {
			case <-p.exited:
				exitSeen = true
				break phaseA
			default:
			}
		}
	}

	for line := range p.readCh {
		select {
		case p.out <- line:
		case <-p.stop:
			p.reap(true)
			return codexrun.ErrTerminated
		}
	}
	if p.scanErr != nil {
		p.reap(true)
		return fmt.Errorf("cli: read stdout: %w", p.scanErr)
	}

	p.reap(false)
	p.logger.Debug("cli: process exited", "exit_polled", exitSeen, "error", p.waitErr)
	return p.exitError()
}

// reap waits for the child and joins the helper goroutines. With kill set
// the child is killed first and the read ends are closed so readers blocked
// on a pipe held open by a grandchild return.
func (p *process) reap(kill bool) {
	if kill {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Debug("cli: kill failed", "error", err)
		}
	}
	<-p.exited
	close(p.quit)
	if kill {
		_ = p.stdout.Close()
		_ = p.stderr.Close()
	}
	p.wg.Wait()
	_ = p.stdout.Close()
	_ = p.stderr.Close()
}

// exitError classifies the wait result after a completed stream.
func (p *process) exitError() error {
	if p.waitErr == nil {
		if p.stdinErr != nil && !errors.Is(p.stdinErr, syscall.EPIPE) {
			return fmt.Errorf("cli: write stdin: %w", p.stdinErr)
		}
		return nil
	}
	var ee *exec.ExitError
	if !errors.As(p.waitErr, &ee) {
		return fmt.Errorf("cli: wait: %w", p.waitErr)
	}
	code := ee.ExitCode()
	detail := "signal"
	if code >= 0 {
		detail = fmt.Sprintf("code %d", code)
	}
	return &codexrun.ExecError{Code: code, Detail: detail, Stderr: p.stderrText}
}

func (p *process) waitLoop() {
	p.waitErr = p.cmd.Wait()
	close(p.exited)
}

func (p *process) writeStdin(input string) {
	defer p.wg.Done()
	_, err := io.WriteString(p.stdin, input)
	if cerr := p.stdin.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		p.logger.Debug("cli: stdin write failed", "error", err)
	}
	p.stdinErr = err
}

func (p *process) readStdout() {
	defer p.wg.Done()
	defer close(p.readCh)

	scanner := bufio.NewScanner(p.stdout)
	initCap := min(4096, p.opts.ScannerBuffer)
	scanner.Buffer(make([]byte, 0, initCap), p.opts.ScannerBuffer)
	for scanner.Scan() {
		select {
		case p.readCh <- scanner.Text():
		case <-p.quit:
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		p.scanErr = err
	}
}

// captureStderr logs each stderr line and keeps the full text for
// ExecError. A panic leaves the buffer empty.
func (p *process) captureStderr() {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("cli: stderr reader panicked", "panic", r)
		}
	}()

	var buf strings.Builder
	reader := bufio.NewReader(p.stderr)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			p.logger.Warn("cli: stderr", "line", strings.TrimRight(line, "\r\n"))
			buf.WriteString(line)
		}
		if err != nil {
			break
		}
	}
	p.stderrText = buf.String()
}
