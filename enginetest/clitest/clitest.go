package clitest

import (
	"slices"
	"strings"
	"testing"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/engine/cli"
)

// resumeID is an arbitrary session id accepted by every backend.
const resumeID = "0199a213-81c0-7800-8aa1-bbab2a035a53"

// RunBackendTests runs the compliance suite for a [cli.Backend].
// The factory is called once per subtest to ensure fresh backend state.
func RunBackendTests(t *testing.T, factory func() cli.Backend) {
	t.Helper()
	t.Run("Structural", func(t *testing.T) { runStructural(t, factory) })
	t.Run("Ordering", func(t *testing.T) { runOrdering(t, factory) })
	t.Run("Safety", func(t *testing.T) { runSafety(t, factory) })
	t.Run("Environment", func(t *testing.T) { runEnvironment(t, factory) })
}

func mustCommand(t *testing.T, b cli.Backend, args codexrun.ExecArgs) cli.CommandSpec {
	t.Helper()
	spec, err := b.Command(args)
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	return spec
}

// fullArgs sets every ExecArgs field.
func fullArgs() codexrun.ExecArgs {
	return codexrun.ExecArgs{
		Input:                 "hello",
		BaseURL:               "https://example.invalid/v1",
		APIKey:                "sk-test",
		ThreadID:              resumeID,
		Images:                []string{"a.png", "b.png"},
		Model:                 "test-model",
		SandboxMode:           codexrun.SandboxWorkspaceWrite,
		WorkingDirectory:      "/work",
		AdditionalDirectories: []string{"/extra/one", "/extra/two"},
		SkipGitRepoCheck:      true,
		OutputSchemaPath:      "/tmp/schema.json",
		ReasoningEffort:       codexrun.ReasoningHigh,
		NetworkAccess:         codexrun.Bool(true),
		WebSearchMode:         codexrun.WebSearchCached,
		ApprovalPolicy:        codexrun.ApprovalNever,
	}
}

func runStructural(t *testing.T, factory func() cli.Backend) {
	t.Helper()

	t.Run("ZeroArgs", func(t *testing.T) {
		spec := mustCommand(t, factory(), codexrun.ExecArgs{})
		if spec.Binary == "" {
			t.Error("binary must be non-empty")
		}
		if len(spec.Args) == 0 {
			t.Error("args must be non-empty")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		b := factory()
		first := mustCommand(t, b, fullArgs())
		for range 5 {
			again := mustCommand(t, b, fullArgs())
			if !slices.Equal(first.Args, again.Args) {
				t.Fatalf("args differ:\n%q\n%q", first.Args, again.Args)
			}
			if !slices.Equal(first.Environ(), again.Environ()) {
				t.Fatal("environment differs between identical calls")
			}
		}
	})

	t.Run("InputNotInArgs", func(t *testing.T) {
		spec := mustCommand(t, factory(), codexrun.ExecArgs{Input: "secret prompt text"})
		if slices.Contains(spec.Args, "secret prompt text") {
			t.Error("prompt must be delivered on stdin, not argv")
		}
	})
}

func runOrdering(t *testing.T, factory func() cli.Backend) {
	t.Helper()

	t.Run("ResumeBeforeImages", func(t *testing.T) {
		spec := mustCommand(t, factory(), fullArgs())
		resume := slices.Index(spec.Args, "resume")
		image := slices.Index(spec.Args, "--image")
		if resume < 0 || image < 0 {
			t.Fatalf("missing resume or image tokens: %q", spec.Args)
		}
		if resume > image {
			t.Errorf("resume at %d follows --image at %d", resume, image)
		}
		if spec.Args[resume+1] != resumeID {
			t.Errorf("resume id = %q", spec.Args[resume+1])
		}
	})

	t.Run("ImagesInOrder", func(t *testing.T) {
		spec := mustCommand(t, factory(), fullArgs())
		var images []string
		for i, a := range spec.Args {
			if a == "--image" && i+1 < len(spec.Args) {
				images = append(images, spec.Args[i+1])
			}
		}
		if !slices.Equal(images, []string{"a.png", "b.png"}) {
			t.Errorf("images = %q", images)
		}
	})

	t.Run("NoResumeWithoutThread", func(t *testing.T) {
		args := fullArgs()
		args.ThreadID = ""
		spec := mustCommand(t, factory(), args)
		if slices.Contains(spec.Args, "resume") {
			t.Error("resume token without thread id")
		}
	})
}

func runSafety(t *testing.T, factory func() cli.Backend) {
	t.Helper()

	t.Run("NoNullBytesInArgs", func(t *testing.T) {
		spec := mustCommand(t, factory(), fullArgs())
		for i, a := range spec.Args {
			if strings.Contains(a, "\x00") {
				t.Errorf("args[%d] contains null bytes", i)
			}
		}
	})

	t.Run("NullByteModelRejected", func(t *testing.T) {
		args := fullArgs()
		args.Model = "gpt\x00evil"
		if _, err := factory().Command(args); err == nil {
			t.Error("expected error for null-byte model")
		}
	})

	t.Run("NullByteImageRejected", func(t *testing.T) {
		args := fullArgs()
		args.Images = []string{"ok.png", "bad\x00.png"}
		if _, err := factory().Command(args); err == nil {
			t.Error("expected error for null-byte image path")
		}
	})

	t.Run("APIKeyNotInArgs", func(t *testing.T) {
		spec := mustCommand(t, factory(), fullArgs())
		for _, a := range spec.Args {
			if strings.Contains(a, "sk-test") {
				t.Fatalf("api key leaked into args: %q", a)
			}
		}
	})
}

func runEnvironment(t *testing.T, factory func() cli.Backend) {
	t.Helper()

	t.Run("CredentialsInEnv", func(t *testing.T) {
		spec := mustCommand(t, factory(), fullArgs())
		env := spec.Environ()
		if !slices.Contains(env, "OPENAI_BASE_URL=https://example.invalid/v1") {
			t.Error("OPENAI_BASE_URL missing")
		}
		if !slices.Contains(env, "CODEX_API_KEY=sk-test") {
			t.Error("CODEX_API_KEY missing")
		}
	})

	t.Run("EnvNoNullBytes", func(t *testing.T) {
		spec := mustCommand(t, factory(), fullArgs())
		for _, kv := range spec.Environ() {
			if strings.Contains(kv, "\x00") {
				t.Errorf("env entry contains null bytes: %q", kv)
			}
		}
	})
}
