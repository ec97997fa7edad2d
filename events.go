package codexrun

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// EventType identifies the kind of a top-level event on codex's stdout.
type EventType string

const (
	// EventThreadStarted carries the session id assigned by codex.
	EventThreadStarted EventType = "thread.started"

	// EventTurnStarted marks the beginning of a turn.
	EventTurnStarted EventType = "turn.started"

	// EventTurnCompleted ends a successful turn and reports token usage.
	EventTurnCompleted EventType = "turn.completed"

	// EventTurnFailed ends a turn with an error.
	EventTurnFailed EventType = "turn.failed"

	// EventItemStarted announces a new item.
	EventItemStarted EventType = "item.started"

	// EventItemUpdated carries a partial update to an item.
	EventItemUpdated EventType = "item.updated"

	// EventItemCompleted carries the final state of an item.
	EventItemCompleted EventType = "item.completed"

	// EventError is an unrecoverable stream-level error reported by codex.
	EventError EventType = "error"
)

// Usage reports token consumption for a completed turn.
type Usage struct {
	InputTokens       int64 `json:"input_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
}

// ThreadError is the error payload of a turn.failed event.
type ThreadError struct {
	Message string `json:"message"`
}

// Event is a single parsed line of codex's JSONL output.
//
// Type determines which field is populated:
//   - thread.started: ThreadID
//   - turn.started: none
//   - turn.completed: Usage
//   - turn.failed: Error
//   - item.started, item.updated, item.completed: Item
//   - error: Message
type Event struct {
	Type     EventType
	ThreadID string
	Usage    *Usage
	Error    *ThreadError
	Item     Item
	Message  string
}

// eventFields lists the members each event type must carry.
var eventFields = map[EventType][]string{
	EventThreadStarted: {"thread_id"},
	EventTurnStarted:   nil,
	EventTurnCompleted: {"usage"},
	EventTurnFailed:    {"error"},
	EventItemStarted:   {"item"},
	EventItemUpdated:   {"item"},
	EventItemCompleted: {"item"},
	EventError:         {"message"},
}

// ParseEvent parses one stdout line into an Event. Malformed JSON, unknown
// event or item types, missing required members and out-of-range enum values
// all yield *InvalidEventError carrying the raw line.
func ParseEvent(line string) (Event, error) {
	ev, err := parseEvent([]byte(line))
	if err != nil {
		return Event{}, &InvalidEventError{Line: line, Err: err}
	}
	return ev, nil
}

// UnmarshalJSON decodes an event with the same rules as ParseEvent.
func (e *Event) UnmarshalJSON(data []byte) error {
	ev, err := parseEvent(data)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

// MarshalJSON encodes the event in codex's wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case EventThreadStarted:
		return marshalWire(struct {
			Type     EventType `json:"type"`
			ThreadID string    `json:"thread_id"`
		}{e.Type, e.ThreadID})
	case EventTurnStarted:
		return marshalWire(struct {
			Type EventType `json:"type"`
		}{e.Type})
	case EventTurnCompleted:
		usage := e.Usage
		if usage == nil {
			usage = &Usage{}
		}
		return marshalWire(struct {
			Type  EventType `json:"type"`
			Usage *Usage    `json:"usage"`
		}{e.Type, usage})
	case EventTurnFailed:
		te := e.Error
		if te == nil {
			te = &ThreadError{}
		}
		return marshalWire(struct {
			Type  EventType    `json:"type"`
			Error *ThreadError `json:"error"`
		}{e.Type, te})
	case EventItemStarted, EventItemUpdated, EventItemCompleted:
		if e.Item == nil {
			return nil, fmt.Errorf("codexrun: %s event without item", e.Type)
		}
		return marshalWire(struct {
			Type EventType `json:"type"`
			Item Item      `json:"item"`
		}{e.Type, e.Item})
	case EventError:
		return marshalWire(struct {
			Type    EventType `json:"type"`
			Message string    `json:"message"`
		}{e.Type, e.Message})
	}
	return nil, fmt.Errorf("codexrun: cannot marshal event type %q", e.Type)
}

// marshalWire encodes v without HTML escaping, so '<', '>' and '&' come
// out the way codex writes them.
func marshalWire(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func parseEvent(data []byte) (Event, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Event{}, err
	}
	var typ EventType
	if err := decodeField(fields, "type", &typ); err != nil {
		return Event{}, err
	}
	required, ok := eventFields[typ]
	if !ok {
		return Event{}, fmt.Errorf("unknown event type %q", typ)
	}
	for _, key := range required {
		if err := requireField(fields, key, false); err != nil {
			return Event{}, fmt.Errorf("%s: %w", typ, err)
		}
	}

	ev := Event{Type: typ}
	switch typ {
	case EventThreadStarted:
		err = decodeField(fields, "thread_id", &ev.ThreadID)
	case EventTurnCompleted:
		ev.Usage, err = decodeUsage(fields["usage"])
	case EventTurnFailed:
		ev.Error, err = decodeThreadError(fields["error"])
	case EventItemStarted, EventItemUpdated, EventItemCompleted:
		ev.Item, err = parseItem(fields["item"])
	case EventError:
		err = decodeField(fields, "message", &ev.Message)
	}
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", typ, err)
	}
	return ev, nil
}

func decodeUsage(raw json.RawMessage) (*Usage, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("usage: %w", err)
	}
	for _, key := range []string{"input_tokens", "cached_input_tokens", "output_tokens"} {
		if err := requireField(fields, key, false); err != nil {
			return nil, fmt.Errorf("usage: %w", err)
		}
	}
	var u Usage
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("usage: %w", err)
	}
	return &u, nil
}

func decodeThreadError(raw json.RawMessage) (*ThreadError, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}
	var te ThreadError
	if err := decodeField(fields, "message", &te.Message); err != nil {
		return nil, fmt.Errorf("error: %w", err)
	}
	return &te, nil
}

var errNotObject = errors.New("not a JSON object")

// decodeObject splits a JSON object into its raw members.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		if len(trimmed) > 0 && !json.Valid(trimmed) {
			var probe any
			return nil, json.Unmarshal(trimmed, &probe)
		}
		return nil, errNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// requireField fails when key is absent, or when it holds null and the
// member is not nullable.
func requireField(fields map[string]json.RawMessage, key string, nullable bool) error {
	raw, ok := fields[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	if !nullable && isNull(raw) {
		return fmt.Errorf("field %q is null", key)
	}
	return nil
}

// decodeField unmarshals a required, non-null member into dst.
func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	if err := requireField(fields, key, false); err != nil {
		return err
	}
	if err := json.Unmarshal(fields[key], dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
