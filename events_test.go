package codexrun

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseEvent_Types(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		check func(t *testing.T, ev Event)
	}{
		{
			name: "thread_started",
			line: lineThreadStarted,
			check: func(t *testing.T, ev Event) {
				if ev.Type != EventThreadStarted || ev.ThreadID != "thread_1" {
					t.Errorf("ev = %+v", ev)
				}
			},
		},
		{
			name: "turn_started",
			line: lineTurnStarted,
			check: func(t *testing.T, ev Event) {
				if ev.Type != EventTurnStarted {
					t.Errorf("Type = %q", ev.Type)
				}
			},
		},
		{
			name: "turn_completed",
			line: lineTurnCompleted,
			check: func(t *testing.T, ev Event) {
				want := Usage{InputTokens: 42, CachedInputTokens: 10, OutputTokens: 5}
				if ev.Usage == nil || *ev.Usage != want {
					t.Errorf("Usage = %+v, want %+v", ev.Usage, want)
				}
			},
		},
		{
			name: "turn_failed",
			line: lineTurnFailed,
			check: func(t *testing.T, ev Event) {
				if ev.Error == nil || ev.Error.Message != "rate limited" {
					t.Errorf("Error = %+v", ev.Error)
				}
			},
		},
		{
			name: "error",
			line: `{"type":"error","message":"stream broke"}`,
			check: func(t *testing.T, ev Event) {
				if ev.Type != EventError || ev.Message != "stream broke" {
					t.Errorf("ev = %+v", ev)
				}
			},
		},
		{
			name: "extra_members_ignored",
			line: `{"type":"thread.started","thread_id":"t","future":true}`,
			check: func(t *testing.T, ev Event) {
				if ev.ThreadID != "t" {
					t.Errorf("ThreadID = %q", ev.ThreadID)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(tt.line)
			if err != nil {
				t.Fatalf("ParseEvent: %v", err)
			}
			tt.check(t, ev)
		})
	}
}

func TestParseEvent_Items(t *testing.T) {
	wrap := func(item string) string {
		return `{"type":"item.completed","item":` + item + `}`
	}

	t.Run("command_execution", func(t *testing.T) {
		ev, err := ParseEvent(wrap(`{"type":"command_execution","id":"c1","command":"ls","aggregated_output":"a\nb","exit_code":0,"status":"completed"}`))
		if err != nil {
			t.Fatal(err)
		}
		it, ok := ev.Item.(CommandExecutionItem)
		if !ok {
			t.Fatalf("Item = %T", ev.Item)
		}
		if it.ExitCode == nil || *it.ExitCode != 0 || it.Status != CommandCompleted || it.AggregatedOutput != "a\nb" {
			t.Errorf("item = %+v", it)
		}
	})

	t.Run("command_execution_running", func(t *testing.T) {
		ev, err := ParseEvent(`{"type":"item.started","item":{"type":"command_execution","id":"c1","command":"ls","aggregated_output":"","status":"in_progress"}}`)
		if err != nil {
			t.Fatal(err)
		}
		if it := ev.Item.(CommandExecutionItem); it.ExitCode != nil {
			t.Errorf("ExitCode = %v, want nil", *it.ExitCode)
		}
	})

	t.Run("file_change", func(t *testing.T) {
		ev, err := ParseEvent(wrap(`{"type":"file_change","id":"f1","changes":[{"path":"a.go","kind":"add"},{"path":"b.go","kind":"update"}],"status":"completed"}`))
		if err != nil {
			t.Fatal(err)
		}
		it := ev.Item.(FileChangeItem)
		if len(it.Changes) != 2 || it.Changes[1].Kind != PatchUpdate {
			t.Errorf("item = %+v", it)
		}
	})

	t.Run("mcp_tool_call", func(t *testing.T) {
		ev, err := ParseEvent(wrap(`{"type":"mcp_tool_call","id":"m1","server":"fs","tool":"read","arguments":null,"result":{"content":[{"type":"text","text":"ok"}],"structured_content":null},"status":"completed"}`))
		if err != nil {
			t.Fatal(err)
		}
		it := ev.Item.(McpToolCallItem)
		if it.Server != "fs" || it.Tool != "read" || it.Result == nil || len(it.Result.Content) != 1 {
			t.Errorf("item = %+v", it)
		}
		if it.Error != nil {
			t.Errorf("Error = %+v, want nil", it.Error)
		}
	})

	t.Run("mcp_tool_call_error", func(t *testing.T) {
		ev, err := ParseEvent(wrap(`{"type":"mcp_tool_call","id":"m1","server":"fs","tool":"read","arguments":{"path":"/x"},"error":{"message":"denied"},"status":"failed"}`))
		if err != nil {
			t.Fatal(err)
		}
		it := ev.Item.(McpToolCallItem)
		if it.Error == nil || it.Error.Message != "denied" || it.Status != McpToolFailed {
			t.Errorf("item = %+v", it)
		}
		if string(it.Arguments) != `{"path":"/x"}` {
			t.Errorf("Arguments = %s", it.Arguments)
		}
	})

	t.Run("todo_list", func(t *testing.T) {
		ev, err := ParseEvent(wrap(`{"type":"todo_list","id":"t1","items":[{"text":"write tests","completed":true},{"text":"ship","completed":false}]}`))
		if err != nil {
			t.Fatal(err)
		}
		it := ev.Item.(TodoListItem)
		if len(it.Items) != 2 || !it.Items[0].Completed || it.Items[1].Completed {
			t.Errorf("item = %+v", it)
		}
	})

	t.Run("simple_items", func(t *testing.T) {
		for typ, item := range map[ItemType]string{
			ItemAgentMessage: `{"type":"agent_message","id":"i","text":"t"}`,
			ItemReasoning:    `{"type":"reasoning","id":"i","text":"t"}`,
			ItemWebSearch:    `{"type":"web_search","id":"i","query":"go slog"}`,
			ItemError:        `{"type":"error","id":"i","message":"m"}`,
		} {
			ev, err := ParseEvent(wrap(item))
			if err != nil {
				t.Fatalf("%s: %v", typ, err)
			}
			if ev.Item.ItemType() != typ || ev.Item.ItemID() != "i" {
				t.Errorf("%s: item = %+v", typ, ev.Item)
			}
		}
	})
}

func TestParseEvent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not_json", "not json"},
		{"truncated", `{"type":"turn.started"`},
		{"array", `[1,2]`},
		{"string", `"thread.started"`},
		{"missing_type", `{"thread_id":"t"}`},
		{"null_type", `{"type":null}`},
		{"unknown_type", `{"type":"turn.paused"}`},
		{"missing_thread_id", `{"type":"thread.started"}`},
		{"null_thread_id", `{"type":"thread.started","thread_id":null}`},
		{"wrong_thread_id_type", `{"type":"thread.started","thread_id":7}`},
		{"missing_usage", `{"type":"turn.completed"}`},
		{"partial_usage", `{"type":"turn.completed","usage":{"input_tokens":1,"output_tokens":2}}`},
		{"missing_error", `{"type":"turn.failed"}`},
		{"missing_error_message", `{"type":"turn.failed","error":{}}`},
		{"missing_message", `{"type":"error"}`},
		{"null_item", `{"type":"item.completed","item":null}`},
		{"unknown_item", `{"type":"item.completed","item":{"type":"hologram","id":"x"}}`},
		{"item_missing_text", `{"type":"item.completed","item":{"type":"agent_message","id":"x"}}`},
		{"item_missing_id", `{"type":"item.completed","item":{"type":"reasoning","text":"x"}}`},
		{"bad_command_status", `{"type":"item.completed","item":{"type":"command_execution","id":"c","command":"ls","aggregated_output":"","status":"paused"}}`},
		{"bad_change_kind", `{"type":"item.completed","item":{"type":"file_change","id":"f","changes":[{"path":"a","kind":"rename"}],"status":"completed"}}`},
		{"bad_patch_status", `{"type":"item.completed","item":{"type":"file_change","id":"f","changes":[],"status":"in_progress"}}`},
		{"mcp_missing_arguments", `{"type":"item.completed","item":{"type":"mcp_tool_call","id":"m","server":"s","tool":"t","status":"completed"}}`},
		{"bad_mcp_status", `{"type":"item.completed","item":{"type":"mcp_tool_call","id":"m","server":"s","tool":"t","arguments":{},"status":"done"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEvent(tt.line)
			var evErr *InvalidEventError
			if !errors.As(err, &evErr) {
				t.Fatalf("err = %v, want *InvalidEventError", err)
			}
			if evErr.Line != tt.line {
				t.Errorf("Line = %q, want %q", evErr.Line, tt.line)
			}
		})
	}
}

func TestEvent_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "thread_started",
			ev:   Event{Type: EventThreadStarted, ThreadID: "t"},
			want: `{"type":"thread.started","thread_id":"t"}`,
		},
		{
			name: "turn_completed",
			ev:   Event{Type: EventTurnCompleted, Usage: &Usage{InputTokens: 1, OutputTokens: 2}},
			want: `{"type":"turn.completed","usage":{"input_tokens":1,"cached_input_tokens":0,"output_tokens":2}}`,
		},
		{
			name: "item_completed",
			ev:   Event{Type: EventItemCompleted, Item: AgentMessageItem{ID: "i1", Text: "hi"}},
			want: `{"type":"item.completed","item":{"type":"agent_message","id":"i1","text":"hi"}}`,
		},
		{
			name: "command_without_exit_code",
			ev: Event{Type: EventItemStarted, Item: CommandExecutionItem{
				ID: "c", Command: "ls", Status: CommandInProgress,
			}},
			want: `{"type":"item.started","item":{"type":"command_execution","id":"c","command":"ls","aggregated_output":"","status":"in_progress"}}`,
		},
		{
			name: "html_in_item",
			ev: Event{Type: EventItemCompleted, Item: CommandExecutionItem{
				ID: "c", Command: "echo '<a>' && true", AggregatedOutput: "<a>\n", Status: CommandCompleted,
			}},
			want: `{"type":"item.completed","item":{"type":"command_execution","id":"c","command":"echo '<a>' && true","aggregated_output":"<a>\n","status":"completed"}}`,
		},
		{
			name: "html_in_error",
			ev:   Event{Type: EventError, Message: "a < b & c > d"},
			want: `{"type":"error","message":"a < b & c > d"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ev.MarshalJSON()
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
			back, err := ParseEvent(string(got))
			if err != nil {
				t.Fatalf("ParseEvent of marshalled event: %v", err)
			}
			if back.Type != tt.ev.Type {
				t.Errorf("Type = %q, want %q", back.Type, tt.ev.Type)
			}
		})
	}
}

func TestEvent_EncoderKeepsWireText(t *testing.T) {
	line := `{"type":"item.completed","item":{"type":"agent_message","id":"i1","text":"use <T> & go"}}`
	ev, err := ParseEvent(line)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if got := strings.TrimSuffix(buf.String(), "\n"); got != line {
		t.Errorf("got  %s\nwant %s", got, line)
	}
}

func TestEvent_MarshalJSON_Errors(t *testing.T) {
	if _, err := json.Marshal(Event{Type: "bogus"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := json.Marshal(Event{Type: EventItemCompleted}); err == nil {
		t.Error("expected error for item event without item")
	}
}

func TestEvent_UnmarshalJSON(t *testing.T) {
	var evs []Event
	data := `[` + lineThreadStarted + `,` + lineAgentHello + `]`
	if err := json.Unmarshal([]byte(data), &evs); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(evs) != 2 || evs[1].Item.(AgentMessageItem).Text != "hello" {
		t.Errorf("evs = %+v", evs)
	}

	var ev Event
	if err := json.Unmarshal([]byte(`{"type":"nope"}`), &ev); err == nil {
		t.Error("expected error for unknown type")
	}
}
