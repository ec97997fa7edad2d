package codex

import (
	"os"
	"strings"

	"github.com/dmora/codexrun"
)

// Environment keys set for the child process.
const (
	EnvOriginator = "CODEX_INTERNAL_ORIGINATOR_OVERRIDE"
	EnvBaseURL    = "OPENAI_BASE_URL"
	EnvAPIKey     = "CODEX_API_KEY"

	// Originator identifies this SDK to codex.
	Originator = "codex_sdk_go"
)

// buildEnv resolves the child environment. An explicit override is used as
// given; otherwise the parent environment is inherited. The originator,
// CI and TERM markers are only filled in when absent. The base URL and API
// key from args always win.
func buildEnv(override map[string]string, args codexrun.ExecArgs) map[string]string {
	var env map[string]string
	if override != nil {
		env = make(map[string]string, len(override)+5)
		for k, v := range override {
			env[k] = v
		}
	} else {
		env = environMap(os.Environ())
	}

	setDefault(env, EnvOriginator, Originator)
	setDefault(env, "CI", "true")
	setDefault(env, "TERM", "xterm")

	if args.BaseURL != "" {
		env[EnvBaseURL] = args.BaseURL
	}
	if args.APIKey != "" {
		env[EnvAPIKey] = args.APIKey
	}
	return env
}

func setDefault(env map[string]string, key, value string) {
	if _, ok := env[key]; !ok {
		env[key] = value
	}
}

// environMap parses KEY=VALUE pairs. Entries without a key are skipped;
// later duplicates win, as with exec.Cmd.
func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ)+5)
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}
