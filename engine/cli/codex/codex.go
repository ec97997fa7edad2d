package codex

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/engine/cli"
	"github.com/dmora/codexrun/engine/cli/internal/jsonutil"
)

// CLI subcommand and flag constants.
const (
	subcmdExec       = "exec"
	subcmdResume     = "resume"
	flagJSON         = "--experimental-json"
	flagConfig       = "--config"
	flagModel        = "--model"
	flagSandbox      = "--sandbox"
	flagCD           = "--cd"
	flagAddDir       = "--add-dir"
	flagSkipGitCheck = "--skip-git-repo-check"
	flagOutputSchema = "--output-schema"
	flagImage        = "--image"
)

// Config keys passed through --config rather than dedicated flags.
const (
	keyReasoningEffort = "model_reasoning_effort"
	keyNetworkAccess   = "sandbox_workspace_write.network_access"
	keyWebSearch       = "web_search"
	keyApprovalPolicy  = "approval_policy"
)

const defaultBinary = "codex"

// Backend builds codex exec command lines. It is safe for concurrent use.
type Backend struct {
	binary string
	env    map[string]string
	config any
	logger *slog.Logger
}

// Compile-time interface satisfaction check.
var _ cli.Backend = (*Backend)(nil)

// Option configures a Backend at construction time.
type Option func(*Backend)

// WithBinary overrides the Codex CLI binary path.
// Empty values are ignored; the default is "codex".
func WithBinary(path string) Option {
	return func(b *Backend) {
		if path != "" {
			b.binary = path
		}
	}
}

// WithEnv replaces the inherited environment with env. The map is copied.
func WithEnv(env map[string]string) Option {
	return func(b *Backend) {
		if env != nil {
			b.env = maps.Clone(env)
		}
	}
}

// WithConfig sets the config override tree passed as --config flags on
// every invocation. See SerializeConfigOverrides for accepted values.
func WithConfig(tree any) Option {
	return func(b *Backend) {
		b.config = tree
	}
}

// WithLogger sets the logger for command construction traces.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a Codex CLI backend with the given options.
func New(opts ...Option) *Backend {
	b := &Backend{
		binary: defaultBinary,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Binary returns the configured binary name or path.
func (b *Backend) Binary() string {
	return b.binary
}

// Command builds the argument vector and environment for one turn:
//
//	exec --experimental-json [--config k=v]... [--model m] [--sandbox s]
//	  [--cd dir] [--add-dir d]... [--skip-git-repo-check]
//	  [--output-schema path] [--config model_reasoning_effort=...]
//	  [--config sandbox_workspace_write.network_access=...]
//	  [--config web_search=...] [--config approval_policy=...]
//	  [resume <thread-id>] [--image path]...
func (b *Backend) Command(args codexrun.ExecArgs) (cli.CommandSpec, error) {
	argv := []string{subcmdExec, flagJSON}

	if b.config != nil {
		overrides, err := SerializeConfigOverrides(b.config)
		if err != nil {
			return cli.CommandSpec{}, err
		}
		b.logger.Debug("codex: config overrides", "count", len(overrides))
		for _, o := range overrides {
			argv = append(argv, flagConfig, o)
		}
	}

	if args.Model != "" {
		argv = append(argv, flagModel, args.Model)
	}
	if args.SandboxMode != "" {
		argv = append(argv, flagSandbox, string(args.SandboxMode))
	}
	if args.WorkingDirectory != "" {
		argv = append(argv, flagCD, args.WorkingDirectory)
	}
	for _, dir := range args.AdditionalDirectories {
		argv = append(argv, flagAddDir, dir)
	}
	if args.SkipGitRepoCheck {
		argv = append(argv, flagSkipGitCheck)
	}
	if args.OutputSchemaPath != "" {
		argv = append(argv, flagOutputSchema, args.OutputSchemaPath)
	}
	if args.ReasoningEffort != "" {
		argv = append(argv, flagConfig, configString(keyReasoningEffort, string(args.ReasoningEffort)))
	}
	if args.NetworkAccess != nil {
		argv = append(argv, flagConfig, fmt.Sprintf("%s=%t", keyNetworkAccess, *args.NetworkAccess))
	}
	if mode, ok := b.webSearch(args); ok {
		argv = append(argv, flagConfig, configString(keyWebSearch, string(mode)))
	}
	if args.ApprovalPolicy != "" {
		argv = append(argv, flagConfig, configString(keyApprovalPolicy, string(args.ApprovalPolicy)))
	}
	if args.ThreadID != "" {
		argv = append(argv, subcmdResume, args.ThreadID)
	}
	for _, img := range args.Images {
		argv = append(argv, flagImage, img)
	}

	for i, a := range argv {
		if jsonutil.ContainsNull(a) {
			return cli.CommandSpec{}, fmt.Errorf("codex: argument %d contains null bytes", i)
		}
	}

	env := buildEnv(b.env, args)
	for k, v := range env {
		if jsonutil.ContainsNull(k) || jsonutil.ContainsNull(v) {
			return cli.CommandSpec{}, fmt.Errorf("codex: environment variable %q contains null bytes", k)
		}
	}

	b.logger.Debug("codex: command built", "argc", len(argv), "envc", len(env), "args", args)
	for _, a := range argv {
		b.logger.Debug("codex: arg", "value", a)
	}

	return cli.CommandSpec{Binary: b.binary, Args: argv, Env: env}, nil
}

// webSearch resolves the web_search setting. An explicit mode wins over the
// boolean toggle.
func (b *Backend) webSearch(args codexrun.ExecArgs) (codexrun.WebSearchMode, bool) {
	if args.WebSearchMode != "" {
		if args.WebSearchEnabled != nil && *args.WebSearchEnabled != (args.WebSearchMode != codexrun.WebSearchDisabled) {
			b.logger.Warn("codex: web search mode overrides conflicting toggle",
				"mode", args.WebSearchMode, "enabled", *args.WebSearchEnabled)
		}
		return args.WebSearchMode, true
	}
	if args.WebSearchEnabled != nil {
		if *args.WebSearchEnabled {
			return codexrun.WebSearchLive, true
		}
		return codexrun.WebSearchDisabled, true
	}
	return "", false
}

func configString(key, value string) string {
	return key + "=" + jsonutil.Quote(value)
}
