package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmora/codexrun"
	"github.com/dmora/codexrun/recorder"
)

const previewLen = 200

// printer renders events for a terminal, or as JSONL when jsonOut is set.
type printer struct {
	w       io.Writer
	jsonOut bool

	label lipgloss.Style
	faint lipgloss.Style
	bad   lipgloss.Style
	good  lipgloss.Style
}

func newPrinter(w io.Writer, jsonOut bool) *printer {
	return &printer{
		w:       w,
		jsonOut: jsonOut,
		label:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		faint:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		bad:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		good:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

func (p *printer) line(style lipgloss.Style, tag, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", style.Render(fmt.Sprintf("%-9s", "["+tag+"]")), fmt.Sprintf(format, args...))
}

// event prints one event. Lifecycle events without content are shown
// faintly; item.started and item.updated only appear for commands.
func (p *printer) event(ev codexrun.Event) error {
	if p.jsonOut {
		enc := json.NewEncoder(p.w)
		enc.SetEscapeHTML(false)
		return enc.Encode(ev)
	}

	switch ev.Type {
	case codexrun.EventThreadStarted:
		p.line(p.faint, "thread", "%s", ev.ThreadID)
	case codexrun.EventTurnStarted:
		p.line(p.faint, "turn", "started")
	case codexrun.EventTurnCompleted:
		p.usage(ev.Usage)
	case codexrun.EventTurnFailed:
		msg := ""
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		p.line(p.bad, "failed", "%s", msg)
	case codexrun.EventError:
		p.line(p.bad, "error", "%s", ev.Message)
	case codexrun.EventItemStarted, codexrun.EventItemUpdated:
		if cmd, ok := ev.Item.(codexrun.CommandExecutionItem); ok && ev.Type == codexrun.EventItemStarted {
			p.line(p.faint, "exec", "%s", cmd.Command)
		}
	case codexrun.EventItemCompleted:
		p.item(ev.Item)
	}
	return nil
}

func (p *printer) item(item codexrun.Item) {
	switch it := item.(type) {
	case codexrun.AgentMessageItem:
		p.line(p.label, "agent", "%s", it.Text)
	case codexrun.ReasoningItem:
		p.line(p.faint, "think", "%s", preview(it.Text))
	case codexrun.CommandExecutionItem:
		style := p.good
		if it.Status == codexrun.CommandFailed {
			style = p.bad
		}
		code := "?"
		if it.ExitCode != nil {
			code = fmt.Sprint(*it.ExitCode)
		}
		p.line(style, "exec", "%s (exit %s)", it.Command, code)
		if out := preview(it.AggregatedOutput); out != "" {
			fmt.Fprintln(p.w, p.faint.Render(out))
		}
	case codexrun.FileChangeItem:
		for _, c := range it.Changes {
			p.line(p.label, "patch", "%s %s", c.Kind, c.Path)
		}
	case codexrun.McpToolCallItem:
		style := p.good
		if it.Status == codexrun.McpToolFailed {
			style = p.bad
		}
		p.line(style, "tool", "%s/%s", it.Server, it.Tool)
	case codexrun.WebSearchItem:
		p.line(p.label, "search", "%s", it.Query)
	case codexrun.TodoListItem:
		for _, todo := range it.Items {
			box := "[ ]"
			if todo.Completed {
				box = "[x]"
			}
			p.line(p.faint, "todo", "%s %s", box, todo.Text)
		}
	case codexrun.ErrorItem:
		p.line(p.bad, "error", "%s", it.Message)
	}
}

func (p *printer) usage(u *codexrun.Usage) {
	if p.jsonOut || u == nil {
		return
	}
	p.line(p.faint, "usage", "input=%d cached=%d output=%d", u.InputTokens, u.CachedInputTokens, u.OutputTokens)
}

func (p *printer) header(h recorder.Header) {
	if p.jsonOut {
		return
	}
	p.line(p.faint, "replay", "%s recorded %s", h.ID, h.Timestamp)
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > previewLen {
		return s[:previewLen] + "..."
	}
	return s
}
