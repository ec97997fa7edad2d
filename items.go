package codexrun

import (
	"encoding/json"
	"fmt"
)

// ItemType identifies the kind of item carried by item.* events.
type ItemType string

const (
	// ItemAgentMessage is the agent's textual response.
	ItemAgentMessage ItemType = "agent_message"

	// ItemReasoning is a reasoning summary.
	ItemReasoning ItemType = "reasoning"

	// ItemCommandExecution is a shell command run by the agent.
	ItemCommandExecution ItemType = "command_execution"

	// ItemFileChange is a set of file edits applied by the agent.
	ItemFileChange ItemType = "file_change"

	// ItemMcpToolCall is a call to a tool exposed by an MCP server.
	ItemMcpToolCall ItemType = "mcp_tool_call"

	// ItemWebSearch is a web search issued by the agent.
	ItemWebSearch ItemType = "web_search"

	// ItemTodoList is the agent's running to-do list.
	ItemTodoList ItemType = "todo_list"

	// ItemError is a non-fatal error surfaced as an item.
	ItemError ItemType = "error"
)

// Item is a unit of agent output or work. The set of implementations is
// closed: every concrete type lives in this file and an unknown item tag is
// a parse error.
type Item interface {
	ItemID() string
	ItemType() ItemType
	isItem()
}

// CommandExecutionStatus is the lifecycle state of a command execution.
type CommandExecutionStatus string

const (
	CommandInProgress CommandExecutionStatus = "in_progress"
	CommandCompleted  CommandExecutionStatus = "completed"
	CommandFailed     CommandExecutionStatus = "failed"
)

func (s CommandExecutionStatus) valid() bool {
	switch s {
	case CommandInProgress, CommandCompleted, CommandFailed:
		return true
	}
	return false
}

// PatchChangeKind describes how a single file was changed.
type PatchChangeKind string

const (
	PatchAdd    PatchChangeKind = "add"
	PatchDelete PatchChangeKind = "delete"
	PatchUpdate PatchChangeKind = "update"
)

func (k PatchChangeKind) valid() bool {
	switch k {
	case PatchAdd, PatchDelete, PatchUpdate:
		return true
	}
	return false
}

// PatchApplyStatus is the outcome of applying a file change.
type PatchApplyStatus string

const (
	PatchCompleted PatchApplyStatus = "completed"
	PatchFailed    PatchApplyStatus = "failed"
)

func (s PatchApplyStatus) valid() bool {
	return s == PatchCompleted || s == PatchFailed
}

// McpToolCallStatus is the lifecycle state of an MCP tool call.
type McpToolCallStatus string

const (
	McpToolInProgress McpToolCallStatus = "in_progress"
	McpToolCompleted  McpToolCallStatus = "completed"
	McpToolFailed     McpToolCallStatus = "failed"
)

func (s McpToolCallStatus) valid() bool {
	switch s {
	case McpToolInProgress, McpToolCompleted, McpToolFailed:
		return true
	}
	return false
}

// AgentMessageItem is the agent's response text. The last completed agent
// message of a turn becomes Turn.FinalResponse.
type AgentMessageItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ReasoningItem is a summary of the agent's reasoning.
type ReasoningItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CommandExecutionItem is a command executed by the agent.
// ExitCode is nil while the command is running.
type CommandExecutionItem struct {
	ID               string                 `json:"id"`
	Command          string                 `json:"command"`
	AggregatedOutput string                 `json:"aggregated_output"`
	ExitCode         *int                   `json:"exit_code,omitempty"`
	Status           CommandExecutionStatus `json:"status"`
}

// FileUpdateChange is one path touched by a file change.
type FileUpdateChange struct {
	Path string          `json:"path"`
	Kind PatchChangeKind `json:"kind"`
}

// FileChangeItem is a patch applied by the agent.
type FileChangeItem struct {
	ID      string             `json:"id"`
	Changes []FileUpdateChange `json:"changes"`
	Status  PatchApplyStatus   `json:"status"`
}

// McpToolCallResult is the payload returned by an MCP tool.
type McpToolCallResult struct {
	Content           []json.RawMessage `json:"content"`
	StructuredContent json.RawMessage   `json:"structured_content"`
}

// McpToolCallError is the error returned by an MCP tool.
type McpToolCallError struct {
	Message string `json:"message"`
}

// McpToolCallItem is a tool call routed to an MCP server.
type McpToolCallItem struct {
	ID        string             `json:"id"`
	Server    string             `json:"server"`
	Tool      string             `json:"tool"`
	Arguments json.RawMessage    `json:"arguments"`
	Result    *McpToolCallResult `json:"result,omitempty"`
	Error     *McpToolCallError  `json:"error,omitempty"`
	Status    McpToolCallStatus  `json:"status"`
}

// WebSearchItem is a web search query.
type WebSearchItem struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

// TodoItem is a single entry of a to-do list.
type TodoItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// TodoListItem is the agent's to-do list.
type TodoListItem struct {
	ID    string     `json:"id"`
	Items []TodoItem `json:"items"`
}

// ErrorItem is a non-fatal error reported by the agent.
type ErrorItem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (i AgentMessageItem) ItemID() string     { return i.ID }
func (i ReasoningItem) ItemID() string        { return i.ID }
func (i CommandExecutionItem) ItemID() string { return i.ID }
func (i FileChangeItem) ItemID() string       { return i.ID }
func (i McpToolCallItem) ItemID() string      { return i.ID }
func (i WebSearchItem) ItemID() string        { return i.ID }
func (i TodoListItem) ItemID() string         { return i.ID }
func (i ErrorItem) ItemID() string            { return i.ID }

func (AgentMessageItem) ItemType() ItemType     { return ItemAgentMessage }
func (ReasoningItem) ItemType() ItemType        { return ItemReasoning }
func (CommandExecutionItem) ItemType() ItemType { return ItemCommandExecution }
func (FileChangeItem) ItemType() ItemType       { return ItemFileChange }
func (McpToolCallItem) ItemType() ItemType      { return ItemMcpToolCall }
func (WebSearchItem) ItemType() ItemType        { return ItemWebSearch }
func (TodoListItem) ItemType() ItemType         { return ItemTodoList }
func (ErrorItem) ItemType() ItemType            { return ItemError }

func (AgentMessageItem) isItem()     {}
func (ReasoningItem) isItem()        {}
func (CommandExecutionItem) isItem() {}
func (FileChangeItem) isItem()       {}
func (McpToolCallItem) isItem()      {}
func (WebSearchItem) isItem()        {}
func (TodoListItem) isItem()         {}
func (ErrorItem) isItem()            {}

// Wire encoding adds the "type" tag to each item.

func (i AgentMessageItem) MarshalJSON() ([]byte, error) {
	type plain AgentMessageItem
	return marshalTagged(string(ItemAgentMessage), plain(i))
}

func (i ReasoningItem) MarshalJSON() ([]byte, error) {
	type plain ReasoningItem
	return marshalTagged(string(ItemReasoning), plain(i))
}

func (i CommandExecutionItem) MarshalJSON() ([]byte, error) {
	type plain CommandExecutionItem
	return marshalTagged(string(ItemCommandExecution), plain(i))
}

func (i FileChangeItem) MarshalJSON() ([]byte, error) {
	type plain FileChangeItem
	return marshalTagged(string(ItemFileChange), plain(i))
}

func (i McpToolCallItem) MarshalJSON() ([]byte, error) {
	type plain McpToolCallItem
	return marshalTagged(string(ItemMcpToolCall), plain(i))
}

func (i WebSearchItem) MarshalJSON() ([]byte, error) {
	type plain WebSearchItem
	return marshalTagged(string(ItemWebSearch), plain(i))
}

func (i TodoListItem) MarshalJSON() ([]byte, error) {
	type plain TodoListItem
	return marshalTagged(string(ItemTodoList), plain(i))
}

func (i ErrorItem) MarshalJSON() ([]byte, error) {
	type plain ErrorItem
	return marshalTagged(string(ItemError), plain(i))
}

// marshalTagged encodes v as a JSON object and prepends a "type" member.
func marshalTagged(tag string, v any) ([]byte, error) {
	body, err := marshalWire(v)
	if err != nil {
		return nil, err
	}
	typ, err := marshalWire(tag)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(body)+len(typ)+10)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// itemFields lists the members each item type must carry. Members that may
// legitimately hold JSON null are listed in itemNullable.
var itemFields = map[ItemType][]string{
	ItemAgentMessage:     {"id", "text"},
	ItemReasoning:        {"id", "text"},
	ItemCommandExecution: {"id", "command", "aggregated_output", "status"},
	ItemFileChange:       {"id", "changes", "status"},
	ItemMcpToolCall:      {"id", "server", "tool", "arguments", "status"},
	ItemWebSearch:        {"id", "query"},
	ItemTodoList:         {"id", "items"},
	ItemError:            {"id", "message"},
}

var itemNullable = map[string]bool{"arguments": true}

// parseItem decodes the item member of an item.* event.
func parseItem(raw json.RawMessage) (Item, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	var typ ItemType
	if err := decodeField(fields, "type", &typ); err != nil {
		return nil, fmt.Errorf("item: %w", err)
	}
	required, ok := itemFields[typ]
	if !ok {
		return nil, fmt.Errorf("item: unknown item type %q", typ)
	}
	for _, key := range required {
		if err := requireField(fields, key, itemNullable[key]); err != nil {
			return nil, fmt.Errorf("item %s: %w", typ, err)
		}
	}

	item, err := decodeItem(typ, raw)
	if err != nil {
		return nil, fmt.Errorf("item %s: %w", typ, err)
	}
	return item, nil
}

// decodeItem unmarshals raw into the concrete type for typ and validates
// enumerated members.
func decodeItem(typ ItemType, raw json.RawMessage) (Item, error) {
	switch typ {
	case ItemAgentMessage:
		return unmarshalItem[AgentMessageItem](raw)
	case ItemReasoning:
		return unmarshalItem[ReasoningItem](raw)
	case ItemCommandExecution:
		var it CommandExecutionItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, err
		}
		if !it.Status.valid() {
			return nil, fmt.Errorf("unknown status %q", it.Status)
		}
		return it, nil
	case ItemFileChange:
		var it FileChangeItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, err
		}
		if !it.Status.valid() {
			return nil, fmt.Errorf("unknown status %q", it.Status)
		}
		for _, c := range it.Changes {
			if !c.Kind.valid() {
				return nil, fmt.Errorf("unknown change kind %q for %s", c.Kind, c.Path)
			}
		}
		return it, nil
	case ItemMcpToolCall:
		var it McpToolCallItem
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, err
		}
		if !it.Status.valid() {
			return nil, fmt.Errorf("unknown status %q", it.Status)
		}
		return it, nil
	case ItemWebSearch:
		return unmarshalItem[WebSearchItem](raw)
	case ItemTodoList:
		return unmarshalItem[TodoListItem](raw)
	case ItemError:
		return unmarshalItem[ErrorItem](raw)
	}
	return nil, fmt.Errorf("unknown item type %q", typ)
}

func unmarshalItem[T Item](raw json.RawMessage) (Item, error) {
	var it T
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil, err
	}
	return it, nil
}
