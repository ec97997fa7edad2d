package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/dmora/codexrun"
)

// enumValue is a pflag.Value backed by one of the codexrun string enums.
type enumValue[T ~string] struct {
	value *T
	name  string
	parse func(string) (T, error)
}

var _ pflag.Value = (*enumValue[codexrun.SandboxMode])(nil)

func newEnumValue[T ~string](p *T, name string, parse func(string) (T, error)) *enumValue[T] {
	return &enumValue[T]{value: p, name: name, parse: parse}
}

func (e *enumValue[T]) String() string { return string(*e.value) }

func (e *enumValue[T]) Set(s string) error {
	v, err := e.parse(s)
	if err != nil {
		return err
	}
	*e.value = v
	return nil
}

func (e *enumValue[T]) Type() string { return e.name }

// threadFlags are the per-thread settings that can override the config file.
type threadFlags struct {
	model            string
	sandbox          codexrun.SandboxMode
	workingDirectory string
	addDirs          []string
	skipGitRepoCheck bool
	reasoningEffort  codexrun.ReasoningEffort
	networkAccess    bool
	webSearch        codexrun.WebSearchMode
	approval         codexrun.ApprovalMode
}

func (f *threadFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.model, "model", "m", "", "model to use")
	fs.Var(newEnumValue(&f.sandbox, "sandbox", codexrun.ParseSandboxMode), "sandbox",
		"sandbox mode: read-only, workspace-write, danger-full-access")
	fs.StringVarP(&f.workingDirectory, "cd", "C", "", "working directory for the agent")
	fs.StringArrayVar(&f.addDirs, "add-dir", nil, "additional writable directory (repeatable)")
	fs.BoolVar(&f.skipGitRepoCheck, "skip-git-repo-check", false, "allow running outside a git repository")
	fs.Var(newEnumValue(&f.reasoningEffort, "effort", codexrun.ParseReasoningEffort), "reasoning-effort",
		"reasoning effort: minimal, low, medium, high, xhigh")
	fs.BoolVar(&f.networkAccess, "network-access", false, "allow network access in workspace-write sandbox")
	fs.Var(newEnumValue(&f.webSearch, "mode", codexrun.ParseWebSearchMode), "web-search",
		"web search: disabled, cached, live")
	fs.Var(newEnumValue(&f.approval, "policy", codexrun.ParseApprovalMode), "approval",
		"approval policy: never, on-request, on-failure, untrusted")
}

// apply overlays flags the user actually set onto opts.
func (f *threadFlags) apply(fs *pflag.FlagSet, opts *codexrun.ThreadOptions) {
	if fs.Changed("model") {
		opts.Model = f.model
	}
	if fs.Changed("sandbox") {
		opts.SandboxMode = f.sandbox
	}
	if fs.Changed("cd") {
		opts.WorkingDirectory = f.workingDirectory
	}
	if fs.Changed("add-dir") {
		opts.AdditionalDirectories = append(opts.AdditionalDirectories, f.addDirs...)
	}
	if fs.Changed("skip-git-repo-check") {
		opts.SkipGitRepoCheck = f.skipGitRepoCheck
	}
	if fs.Changed("reasoning-effort") {
		opts.ReasoningEffort = f.reasoningEffort
	}
	if fs.Changed("network-access") {
		opts.NetworkAccess = codexrun.Bool(f.networkAccess)
	}
	if fs.Changed("web-search") {
		opts.WebSearchMode = f.webSearch
	}
	if fs.Changed("approval") {
		opts.ApprovalPolicy = f.approval
	}
}

// newLogger builds the diagnostic logger. Logs go to stderr so stdout stays
// machine-readable.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
