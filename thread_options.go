package codexrun

import (
	"fmt"
	"strings"
)

// SandboxMode is the filesystem sandbox policy passed with --sandbox.
type SandboxMode string

const (
	SandboxReadOnly         SandboxMode = "read-only"
	SandboxWorkspaceWrite   SandboxMode = "workspace-write"
	SandboxDangerFullAccess SandboxMode = "danger-full-access"
)

// ApprovalMode is the approval_policy config value.
type ApprovalMode string

const (
	ApprovalNever     ApprovalMode = "never"
	ApprovalOnRequest ApprovalMode = "on-request"
	ApprovalOnFailure ApprovalMode = "on-failure"
	ApprovalUntrusted ApprovalMode = "untrusted"
)

// ReasoningEffort is the model_reasoning_effort config value.
type ReasoningEffort string

const (
	ReasoningMinimal ReasoningEffort = "minimal"
	ReasoningLow     ReasoningEffort = "low"
	ReasoningMedium  ReasoningEffort = "medium"
	ReasoningHigh    ReasoningEffort = "high"
	ReasoningXHigh   ReasoningEffort = "xhigh"
)

// WebSearchMode is the web_search config value.
type WebSearchMode string

const (
	WebSearchDisabled WebSearchMode = "disabled"
	WebSearchCached   WebSearchMode = "cached"
	WebSearchLive     WebSearchMode = "live"
)

// ThreadOptions are the per-thread settings applied to every turn.
// Zero values mean "not set" and produce no flag.
type ThreadOptions struct {
	Model            string
	SandboxMode      SandboxMode
	WorkingDirectory string
	SkipGitRepoCheck bool
	ReasoningEffort  ReasoningEffort

	// NetworkAccess toggles sandbox_workspace_write.network_access when non-nil.
	NetworkAccess *bool

	// WebSearchMode takes precedence over WebSearchEnabled.
	WebSearchMode    WebSearchMode
	WebSearchEnabled *bool

	ApprovalPolicy        ApprovalMode
	AdditionalDirectories []string
}

// TurnOptions are per-turn settings.
type TurnOptions struct {
	// OutputSchema constrains the agent's final response. It must marshal to
	// a JSON object; nil means no schema.
	OutputSchema any
}

// Bool returns a pointer to b, for the optional toggles in ThreadOptions.
func Bool(b bool) *bool { return &b }

// ParseSandboxMode parses a sandbox mode name. Empty input yields the zero
// value.
func ParseSandboxMode(s string) (SandboxMode, error) {
	return parseEnum(s, "sandbox mode", SandboxReadOnly, SandboxWorkspaceWrite, SandboxDangerFullAccess)
}

// ParseApprovalMode parses an approval policy name. Empty input yields the
// zero value.
func ParseApprovalMode(s string) (ApprovalMode, error) {
	return parseEnum(s, "approval policy", ApprovalNever, ApprovalOnRequest, ApprovalOnFailure, ApprovalUntrusted)
}

// ParseReasoningEffort parses a reasoning effort level. Empty input yields
// the zero value.
func ParseReasoningEffort(s string) (ReasoningEffort, error) {
	return parseEnum(s, "reasoning effort", ReasoningMinimal, ReasoningLow, ReasoningMedium, ReasoningHigh, ReasoningXHigh)
}

// ParseWebSearchMode parses a web search mode. Empty input yields the zero
// value.
func ParseWebSearchMode(s string) (WebSearchMode, error) {
	return parseEnum(s, "web search mode", WebSearchDisabled, WebSearchCached, WebSearchLive)
}

func parseEnum[T ~string](s, what string, allowed ...T) (T, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", nil
	}
	for _, a := range allowed {
		if string(a) == v {
			return a, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("codexrun: unknown %s %q (want one of %s)", what, s, strings.Join(names, ", "))
}

// ParseBoolOption parses a boolean option value.
// Empty input returns (false, false, nil).
// Truthy values: "true", "on", "1", "yes" (case-insensitive).
// Falsy values: "false", "off", "0", "no" (case-insensitive).
// Unrecognized values and values containing null bytes return an error.
func ParseBoolOption(s string) (bool, bool, error) {
	if s == "" {
		return false, false, nil
	}
	if strings.Contains(s, "\x00") {
		return false, false, fmt.Errorf("codexrun: boolean value contains null bytes")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		return true, true, nil
	case "false", "off", "0", "no":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("codexrun: %q is not a recognized boolean value", s)
	}
}
