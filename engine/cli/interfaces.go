package cli

import (
	"sort"

	"github.com/dmora/codexrun"
)

// Backend translates a turn's ExecArgs into a concrete command line.
//
// The interface is defined here, at the consumer side; backend packages
// (codex) provide the implementation. Command must be deterministic:
// identical args and backend configuration yield an identical CommandSpec.
type Backend interface {
	Command(args codexrun.ExecArgs) (CommandSpec, error)
}

// CommandSpec is a fully resolved command line.
type CommandSpec struct {
	// Binary is the program to run: an explicit path, or a bare name that
	// the engine resolves through PATH and the vendor directory.
	Binary string

	// Args excludes the program name. Order is significant.
	Args []string

	// Env is the complete child environment. A nil map inherits the
	// parent's environment.
	Env map[string]string
}

// Environ renders Env as sorted KEY=VALUE pairs suitable for exec.Cmd.Env.
func (s CommandSpec) Environ() []string {
	if s.Env == nil {
		return nil
	}
	out := make([]string, 0, len(s.Env))
	for k, v := range s.Env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
