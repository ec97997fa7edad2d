package codexrun

import "log/slog"

// ExecArgs describes a single codex exec invocation. It is built by Thread
// for each turn and handed to an Engine, which must treat it as read-only.
type ExecArgs struct {
	// Input is the prompt written to the process's stdin.
	Input string

	// BaseURL and APIKey override OPENAI_BASE_URL and CODEX_API_KEY in the
	// child environment when non-empty.
	BaseURL string
	APIKey  string

	// ThreadID resumes an existing session when non-empty.
	ThreadID string

	Images                []string
	Model                 string
	SandboxMode           SandboxMode
	WorkingDirectory      string
	AdditionalDirectories []string
	SkipGitRepoCheck      bool
	OutputSchemaPath      string
	ReasoningEffort       ReasoningEffort
	NetworkAccess         *bool
	WebSearchMode         WebSearchMode
	WebSearchEnabled      *bool
	ApprovalPolicy        ApprovalMode
}

// LogValue implements slog.LogValuer. The API key is redacted and the
// prompt is reported by length only.
func (a ExecArgs) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("input_len", len(a.Input)),
		slog.Int("images", len(a.Images)),
	}
	if a.ThreadID != "" {
		attrs = append(attrs, slog.String("thread_id", a.ThreadID))
	}
	if a.BaseURL != "" {
		attrs = append(attrs, slog.String("base_url", a.BaseURL))
	}
	if a.APIKey != "" {
		attrs = append(attrs, slog.String("api_key", "[redacted]"))
	}
	if a.Model != "" {
		attrs = append(attrs, slog.String("model", a.Model))
	}
	if a.SandboxMode != "" {
		attrs = append(attrs, slog.String("sandbox", string(a.SandboxMode)))
	}
	if a.WorkingDirectory != "" {
		attrs = append(attrs, slog.String("cd", a.WorkingDirectory))
	}
	if a.OutputSchemaPath != "" {
		attrs = append(attrs, slog.String("output_schema", a.OutputSchemaPath))
	}
	return slog.GroupValue(attrs...)
}
