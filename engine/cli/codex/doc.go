// Package codex provides the Codex CLI backend for codexrun.
//
// [Backend] turns a turn's [codexrun.ExecArgs] into a "codex exec
// --experimental-json" command line and its environment. Token order is
// fixed, so identical inputs always produce identical commands. Settings
// without a dedicated flag (reasoning effort, network access, web search,
// approval policy) are passed as --config key=value pairs, after the
// user-supplied overrides from [WithConfig].
//
// # Resume
//
// A non-empty ExecArgs.ThreadID appends "resume <id>" after all flags and
// before any --image flags.
//
// # Environment
//
// Without [WithEnv] the child inherits the parent environment. In both
// cases CODEX_INTERNAL_ORIGINATOR_OVERRIDE, CI and TERM are filled in when
// absent, and OPENAI_BASE_URL / CODEX_API_KEY from the request overwrite
// any inherited value.
//
// # Config overrides
//
// [SerializeConfigOverrides] flattens a nested map into dotted TOML
// assignments:
//
//	{"sandbox_workspace_write": {"network_access": true}, "retries": 3}
//
// becomes
//
//	retries=3
//	sandbox_workspace_write.network_access=true
//
// [NewClient] is the shortest path from options to a [codexrun.Client].
package codex
