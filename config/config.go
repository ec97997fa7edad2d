// Package config loads codexrun settings from a YAML file.
//
// The file is located by the CODEXRUN_CONFIG environment variable or an
// explicit path. A handful of environment variables fill values the file
// leaves empty:
//
//   - CODEX_PATH: the codex binary
//   - OPENAI_BASE_URL: the API base URL
//   - the variable named by api_key_env (default CODEX_API_KEY): the API key
//
// Output schemas are read separately by [LoadOutputSchema], which accepts
// JSON with comments and trailing commas.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/engine/cli/codex"
)

// Environment variables consulted by Load and ApplyEnv.
const (
	EnvConfig    = "CODEXRUN_CONFIG"
	EnvCodexPath = "CODEX_PATH"
	EnvBaseURL   = "OPENAI_BASE_URL"
	EnvAPIKey    = "CODEX_API_KEY"
)

// Config is the on-disk configuration.
type Config struct {
	// CodexPath is the codex binary. Empty means PATH lookup.
	CodexPath string `yaml:"codex_path"`

	// VendorDir holds bundled codex builds laid out by target triple.
	VendorDir string `yaml:"vendor_dir"`

	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself is never read from the file.
	APIKeyEnv string `yaml:"api_key_env"`

	// Env replaces the inherited environment of the codex process when set.
	Env map[string]string `yaml:"env"`

	Thread ThreadConfig `yaml:"thread"`

	// Overrides is passed to codex as --config flags.
	Overrides map[string]any `yaml:"overrides"`
}

// ThreadConfig holds the per-thread defaults.
type ThreadConfig struct {
	Model            string   `yaml:"model"`
	Sandbox          string   `yaml:"sandbox"`
	WorkingDirectory string   `yaml:"working_directory"`
	AddDirs          []string `yaml:"add_dirs"`
	SkipGitRepoCheck bool     `yaml:"skip_git_repo_check"`
	ReasoningEffort  string   `yaml:"reasoning_effort"`
	NetworkAccess    *bool    `yaml:"network_access"`
	WebSearch        string   `yaml:"web_search"`
	WebSearchEnabled *bool    `yaml:"web_search_enabled"`
	ApprovalPolicy   string   `yaml:"approval_policy"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{APIKeyEnv: EnvAPIKey}
}

// Load reads the file named by CODEXRUN_CONFIG, or returns the defaults
// when it is unset. Environment fallbacks are applied either way.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		cfg := Default()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path and applies environment
// fallbacks.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Parse decodes YAML configuration over the defaults and validates it.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = EnvAPIKey
	}
	if _, err := cfg.ThreadOptions(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv fills empty values from the environment.
func (c *Config) ApplyEnv() {
	if c.CodexPath == "" {
		c.CodexPath = os.Getenv(EnvCodexPath)
	}
	if c.BaseURL == "" {
		c.BaseURL = os.Getenv(EnvBaseURL)
	}
}

// APIKey returns the value of the variable named by APIKeyEnv.
func (c *Config) APIKey() string {
	if c.APIKeyEnv == "" {
		return os.Getenv(EnvAPIKey)
	}
	return os.Getenv(c.APIKeyEnv)
}

// ThreadOptions converts the thread section into codexrun options.
func (c *Config) ThreadOptions() (codexrun.ThreadOptions, error) {
	t := c.Thread
	sandbox, err := codexrun.ParseSandboxMode(t.Sandbox)
	if err != nil {
		return codexrun.ThreadOptions{}, fmt.Errorf("config: thread.sandbox: %w", err)
	}
	effort, err := codexrun.ParseReasoningEffort(t.ReasoningEffort)
	if err != nil {
		return codexrun.ThreadOptions{}, fmt.Errorf("config: thread.reasoning_effort: %w", err)
	}
	search, err := codexrun.ParseWebSearchMode(t.WebSearch)
	if err != nil {
		return codexrun.ThreadOptions{}, fmt.Errorf("config: thread.web_search: %w", err)
	}
	approval, err := codexrun.ParseApprovalMode(t.ApprovalPolicy)
	if err != nil {
		return codexrun.ThreadOptions{}, fmt.Errorf("config: thread.approval_policy: %w", err)
	}
	return codexrun.ThreadOptions{
		Model:                 t.Model,
		SandboxMode:           sandbox,
		WorkingDirectory:      t.WorkingDirectory,
		SkipGitRepoCheck:      t.SkipGitRepoCheck,
		ReasoningEffort:       effort,
		NetworkAccess:         t.NetworkAccess,
		WebSearchMode:         search,
		WebSearchEnabled:      t.WebSearchEnabled,
		ApprovalPolicy:        approval,
		AdditionalDirectories: t.AddDirs,
	}, nil
}

// ClientOptions converts the configuration into codex client options.
func (c *Config) ClientOptions(logger *slog.Logger) codex.Options {
	opts := codex.Options{
		Path:      c.CodexPath,
		VendorDir: c.VendorDir,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey(),
		Env:       c.Env,
		Logger:    logger,
	}
	if len(c.Overrides) > 0 {
		opts.Config = c.Overrides
	}
	return opts
}

// LoadOutputSchema reads a JSON schema file. Comments and trailing commas
// are stripped first. The schema must be a JSON object.
func LoadOutputSchema(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading schema %s: %w", path, err)
	}
	return ParseOutputSchema(data)
}

// ParseOutputSchema strips JSONC syntax from data and returns the compact
// schema object.
func ParseOutputSchema(data []byte) (json.RawMessage, error) {
	stripped := jsonc.ToJSON(data)
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(stripped, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", codexrun.ErrInvalidOutputSchema, err)
	}
	if obj == nil {
		return nil, codexrun.ErrInvalidOutputSchema
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, stripped); err != nil {
		return nil, fmt.Errorf("%w: %v", codexrun.ErrInvalidOutputSchema, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
