package codexrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"slices"
	"testing"
	"time"
)

// --- Aggregated runs ---

func TestThreadRun_AggregatesTurn(t *testing.T) {
	eng := streamEngine(newMockStream(nil,
		lineThreadStarted,
		lineTurnStarted,
		lineAgentHello,
		lineTurnCompleted,
	))
	thread := NewClient(eng).StartThread(ThreadOptions{})

	turn, err := thread.Run(context.Background(), Text("hi"), TurnOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if turn.FinalResponse != "hello" {
		t.Errorf("FinalResponse = %q, want %q", turn.FinalResponse, "hello")
	}
	if len(turn.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(turn.Items))
	}
	if msg, ok := turn.Items[0].(AgentMessageItem); !ok || msg.ID != "item_0" {
		t.Errorf("Items[0] = %#v, want AgentMessageItem item_0", turn.Items[0])
	}
	want := Usage{InputTokens: 42, CachedInputTokens: 10, OutputTokens: 5}
	if turn.Usage == nil || *turn.Usage != want {
		t.Errorf("Usage = %+v, want %+v", turn.Usage, want)
	}
	if thread.ID() != "thread_1" {
		t.Errorf("ID = %q, want thread_1", thread.ID())
	}
	if got := eng.lastCall(); got.Input != "hi" || got.ThreadID != "" {
		t.Errorf("args = %+v, want Input=hi and no ThreadID", got)
	}
}

func TestThreadRun_SecondTurnResumes(t *testing.T) {
	eng := streamEngine(
		newMockStream(nil, lineThreadStarted, lineAgentHello, lineTurnCompleted),
		newMockStream(nil, lineAgentHello, lineTurnCompleted),
	)
	thread := NewClient(eng).StartThread(ThreadOptions{})

	for range 2 {
		if _, err := thread.Run(context.Background(), Text("again"), TurnOptions{}); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	if got := eng.lastCall().ThreadID; got != "thread_1" {
		t.Errorf("second turn ThreadID = %q, want thread_1", got)
	}
}

func TestThreadRun_LastAgentMessageWins(t *testing.T) {
	eng := streamEngine(newMockStream(nil,
		`{"type":"item.completed","item":{"type":"agent_message","id":"a","text":"first"}}`,
		`{"type":"item.completed","item":{"type":"reasoning","id":"r","text":"thinking"}}`,
		`{"type":"item.completed","item":{"type":"agent_message","id":"b","text":"second"}}`,
		lineTurnCompleted,
	))
	turn, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if turn.FinalResponse != "second" {
		t.Errorf("FinalResponse = %q, want second", turn.FinalResponse)
	}
	if len(turn.Items) != 3 {
		t.Errorf("got %d items, want 3", len(turn.Items))
	}
}

func TestThreadRun_IgnoresNonCompletedEvents(t *testing.T) {
	eng := streamEngine(newMockStream(nil,
		lineTurnStarted,
		`{"type":"item.started","item":{"type":"agent_message","id":"a","text":"partial"}}`,
		`{"type":"item.updated","item":{"type":"agent_message","id":"a","text":"partial more"}}`,
		`{"type":"error","message":"transient"}`,
	))
	turn, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(turn.Items) != 0 || turn.FinalResponse != "" {
		t.Errorf("turn = %+v, want empty", turn)
	}
	if turn.Usage != nil {
		t.Errorf("Usage = %+v, want nil without turn.completed", turn.Usage)
	}
}

func TestThreadRun_TurnFailed(t *testing.T) {
	stream := newMockStream(nil, lineThreadStarted, lineAgentHello, lineTurnFailed, lineTurnCompleted)
	eng := streamEngine(stream)
	turn, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{})
	if turn != nil {
		t.Errorf("turn = %+v, want nil on failure", turn)
	}
	var failed *TurnFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("err = %v, want *TurnFailedError", err)
	}
	if failed.Message != "rate limited" {
		t.Errorf("Message = %q, want %q", failed.Message, "rate limited")
	}
	if !stream.isClosed() {
		t.Error("stream not closed after turn.failed")
	}
}

func TestThreadRun_InvalidLine(t *testing.T) {
	stream := newOpenStream(lineThreadStarted, "not json")
	eng := streamEngine(stream)
	_, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{})
	var evErr *InvalidEventError
	if !errors.As(err, &evErr) {
		t.Fatalf("err = %v, want *InvalidEventError", err)
	}
	if evErr.Line != "not json" {
		t.Errorf("Line = %q, want %q", evErr.Line, "not json")
	}
	if !stream.isClosed() {
		t.Error("stream not closed after parse error")
	}
}

func TestThreadRun_BlankLinesSkipped(t *testing.T) {
	eng := streamEngine(newMockStream(nil, "", lineAgentHello, "   ", lineTurnCompleted))
	turn, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if turn.FinalResponse != "hello" {
		t.Errorf("FinalResponse = %q, want hello", turn.FinalResponse)
	}
}

func TestThreadRun_StreamError(t *testing.T) {
	execErr := &ExecError{Code: 2, Detail: "code 2", Stderr: "bad flag"}
	eng := streamEngine(newMockStream(execErr, lineThreadStarted))
	thread := NewClient(eng).StartThread(ThreadOptions{})
	_, err := thread.Run(context.Background(), Text("x"), TurnOptions{})
	if !errors.Is(err, execErr) {
		t.Fatalf("err = %v, want %v", err, execErr)
	}
	if code, ok := ExitCode(err); !ok || code != 2 {
		t.Errorf("ExitCode = %d, %v; want 2, true", code, ok)
	}
	if thread.ID() != "thread_1" {
		t.Errorf("ID = %q, want thread_1 even after failure", thread.ID())
	}
}

func TestThreadRun_EngineError(t *testing.T) {
	var schemaPath string
	eng := &mockEngine{runFn: func(_ context.Context, args ExecArgs) (LineStream, error) {
		schemaPath = args.OutputSchemaPath
		return nil, ErrAborted
	}}
	schema := map[string]any{"type": "object"}
	_, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{OutputSchema: schema})
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("err = %v, want ErrAborted", err)
	}
	if schemaPath == "" {
		t.Fatal("engine did not receive a schema path")
	}
	if _, err := os.Stat(schemaPath); !os.IsNotExist(err) {
		t.Errorf("schema file still present after engine error: %v", err)
	}
}

// --- Arguments ---

func TestResumeThread_PassesID(t *testing.T) {
	eng := streamEngine(newMockStream(nil, lineTurnCompleted))
	thread := NewClient(eng).ResumeThread("existing", ThreadOptions{})
	if thread.ID() != "existing" {
		t.Errorf("ID = %q, want existing", thread.ID())
	}
	if _, err := thread.Run(context.Background(), Text("x"), TurnOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := eng.lastCall().ThreadID; got != "existing" {
		t.Errorf("ThreadID = %q, want existing", got)
	}
}

func TestThreadRun_OptionsPropagate(t *testing.T) {
	eng := streamEngine(newMockStream(nil))
	client := NewClient(eng, WithBaseURL("https://proxy.invalid"), WithAPIKey("sk-test"))
	thread := client.StartThread(ThreadOptions{
		Model:                 "gpt-5-codex",
		SandboxMode:           SandboxWorkspaceWrite,
		WorkingDirectory:      "/repo",
		SkipGitRepoCheck:      true,
		ReasoningEffort:       ReasoningHigh,
		NetworkAccess:         Bool(true),
		WebSearchMode:         WebSearchLive,
		ApprovalPolicy:        ApprovalNever,
		AdditionalDirectories: []string{"/a", "/b"},
	})
	if _, err := thread.Run(context.Background(), Text("x"), TurnOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := eng.lastCall()
	if got.BaseURL != "https://proxy.invalid" || got.APIKey != "sk-test" {
		t.Errorf("client options not propagated: %+v", got)
	}
	if got.Model != "gpt-5-codex" || got.SandboxMode != SandboxWorkspaceWrite || got.WorkingDirectory != "/repo" {
		t.Errorf("thread options not propagated: %+v", got)
	}
	if !got.SkipGitRepoCheck || got.ReasoningEffort != ReasoningHigh || got.ApprovalPolicy != ApprovalNever {
		t.Errorf("thread options not propagated: %+v", got)
	}
	if got.NetworkAccess == nil || !*got.NetworkAccess || got.WebSearchMode != WebSearchLive {
		t.Errorf("toggles not propagated: %+v", got)
	}
	if !slices.Equal(got.AdditionalDirectories, []string{"/a", "/b"}) {
		t.Errorf("AdditionalDirectories = %v", got.AdditionalDirectories)
	}
	if got.OutputSchemaPath != "" {
		t.Errorf("OutputSchemaPath = %q, want empty without schema", got.OutputSchemaPath)
	}
}

func TestThreadRun_StructuredInput(t *testing.T) {
	eng := streamEngine(newMockStream(nil))
	in := Segments(
		TextInput("Describe file changes"),
		ImageInput("./image.png"),
		TextInput("Focus on impacted tests"),
	)
	if _, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), in, TurnOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := eng.lastCall()
	if got.Input != "Describe file changes\n\nFocus on impacted tests" {
		t.Errorf("Input = %q", got.Input)
	}
	if !slices.Equal(got.Images, []string{"./image.png"}) {
		t.Errorf("Images = %v", got.Images)
	}
}

func TestThreadRun_OutputSchemaLifetime(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"summary": map[string]any{"type": "string"}},
		"required":   []string{"summary"},
	}
	want, err := json.Marshal(schema)
	if err != nil {
		t.Fatal(err)
	}

	var (
		path    string
		written []byte
	)
	eng := &mockEngine{runFn: func(_ context.Context, args ExecArgs) (LineStream, error) {
		path = args.OutputSchemaPath
		written, _ = os.ReadFile(path)
		return newMockStream(nil, lineAgentHello, lineTurnCompleted), nil
	}}
	if _, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{OutputSchema: schema}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !bytes.Equal(written, want) {
		t.Errorf("schema file = %s, want %s", written, want)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("schema file still present after turn: %v", err)
	}
}

func TestThreadRun_InvalidOutputSchema(t *testing.T) {
	eng := streamEngine()
	_, err := NewClient(eng).StartThread(ThreadOptions{}).Run(context.Background(), Text("x"), TurnOptions{OutputSchema: []string{"nope"}})
	if !errors.Is(err, ErrInvalidOutputSchema) {
		t.Fatalf("err = %v, want ErrInvalidOutputSchema", err)
	}
	if eng.callCount() != 0 {
		t.Error("engine called despite invalid schema")
	}
}

// --- Streaming ---

func TestRunStreamed_EventOrder(t *testing.T) {
	eng := streamEngine(newMockStream(nil, lineThreadStarted, lineTurnStarted, lineAgentHello, lineTurnCompleted))
	st, err := NewClient(eng).StartThread(ThreadOptions{}).RunStreamed(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	defer st.Close()

	var got []EventType
	for ev := range st.Events() {
		got = append(got, ev.Type)
	}
	want := []EventType{EventThreadStarted, EventTurnStarted, EventItemCompleted, EventTurnCompleted}
	if !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
	if err := st.Err(); err != nil {
		t.Errorf("Err = %v, want nil", err)
	}
}

func TestRunStreamed_IDVisibleOnThreadStarted(t *testing.T) {
	eng := streamEngine(newOpenStream(lineThreadStarted))
	thread := NewClient(eng).StartThread(ThreadOptions{})
	st, err := thread.RunStreamed(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	defer st.Close()

	ev := <-st.Events()
	if ev.Type != EventThreadStarted {
		t.Fatalf("first event = %q", ev.Type)
	}
	if thread.ID() != "thread_1" {
		t.Errorf("ID = %q, want thread_1 while the turn is live", thread.ID())
	}
}

func TestRunStreamed_Close(t *testing.T) {
	stream := newOpenStream(lineThreadStarted, lineTurnStarted)
	eng := streamEngine(stream)
	st, err := NewClient(eng).StartThread(ThreadOptions{}).RunStreamed(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	<-st.Events()

	done := make(chan struct{})
	go func() {
		_ = st.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	if !stream.isClosed() {
		t.Error("underlying stream not closed")
	}
	if !errors.Is(st.Err(), ErrTerminated) {
		t.Errorf("Err = %v, want ErrTerminated", st.Err())
	}
	for range st.Events() {
	}
	if err := st.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestRunStreamed_ErrBeforeDone(t *testing.T) {
	eng := streamEngine(newOpenStream())
	st, err := NewClient(eng).StartThread(ThreadOptions{}).RunStreamed(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	defer st.Close()
	if err := st.Err(); err != nil {
		t.Errorf("Err on live turn = %v, want nil", err)
	}
}

func TestDrain_HandlerError(t *testing.T) {
	stream := newOpenStream(lineThreadStarted, lineTurnStarted)
	eng := streamEngine(stream)
	st, err := NewClient(eng).StartThread(ThreadOptions{}).RunStreamed(context.Background(), Text("x"), TurnOptions{})
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	stopErr := errors.New("seen enough")
	var n int
	err = Drain(st, func(Event) error {
		n++
		return stopErr
	})
	if !errors.Is(err, stopErr) {
		t.Errorf("err = %v, want %v", err, stopErr)
	}
	if n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}
	if !stream.isClosed() {
		t.Error("stream not closed after handler error")
	}
}
