package codexrun

import (
	"log/slog"
	"strings"
	"sync"
)

// Turn is the aggregated result of a completed turn.
type Turn struct {
	// Items holds every completed item in arrival order.
	Items []Item

	// FinalResponse is the text of the last completed agent message.
	FinalResponse string

	// Usage is nil if codex exited without a turn.completed event.
	Usage *Usage
}

// StreamedTurn is a turn in progress. Events must be drained until closed,
// or the turn abandoned with Close.
type StreamedTurn struct {
	lines   LineStream
	schema  *OutputSchemaFile
	onStart func(id string)
	logger  *slog.Logger

	events   chan Event
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func newStreamedTurn(lines LineStream, schema *OutputSchemaFile, onStart func(string), logger *slog.Logger) *StreamedTurn {
	return &StreamedTurn{
		lines:   lines,
		schema:  schema,
		onStart: onStart,
		logger:  logger,
		events:  make(chan Event),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Events returns the parsed event stream. It is closed when the process
// ends, a line fails to parse, or the turn is closed.
func (s *StreamedTurn) Events() <-chan Event {
	return s.events
}

// Err returns the terminal error once Events is closed: nil on success,
// *InvalidEventError for a malformed line, or the engine's error.
func (s *StreamedTurn) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Close abandons the turn, killing the process if it is still running and
// releasing the output schema file. It blocks until cleanup is complete.
func (s *StreamedTurn) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *StreamedTurn) pump() {
	err := s.forward()
	// No-op when the stream already ended; kills the process after a parse
	// error or Close.
	_ = s.lines.Close()
	if rerr := s.schema.Release(); rerr != nil {
		s.logger.Warn("codexrun: output schema cleanup failed", "error", rerr)
	}
	s.err = err
	s.logger.Debug("codexrun: turn finished", "error", err)
	close(s.done)
	close(s.events)
}

func (s *StreamedTurn) forward() error {
	lines := s.lines.Lines()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return s.lines.Err()
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			ev, err := ParseEvent(line)
			if err != nil {
				return err
			}
			s.logger.Debug("codexrun: event", "type", ev.Type)
			if ev.Type == EventThreadStarted {
				s.onStart(ev.ThreadID)
			}
			select {
			case s.events <- ev:
			case <-s.stop:
				return ErrTerminated
			}
		case <-s.stop:
			return ErrTerminated
		}
	}
}
