// Package filter provides composable channel middleware for filtering
// codexrun event streams. Consumers wrap StreamedTurn.Events() with these
// functions to select the event granularity they need.
package filter

import (
	"context"
	"strings"

	"github.com/dmora/codexrun"
)

// Filter returns a channel that only passes events of the given types.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed.
// The returned channel is closed when the goroutine exits.
func Filter(ctx context.Context, ch <-chan codexrun.Event, types ...codexrun.EventType) <-chan codexrun.Event {
	allowed := make(map[codexrun.EventType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return pipe(ctx, ch, func(ev codexrun.Event) bool {
		_, ok := allowed[ev.Type]
		return ok
	})
}

// Completed returns a channel that passes only item.completed events,
// dropping lifecycle events and partial item updates. Spawns a goroutine
// that exits when ctx is cancelled or ch is closed.
func Completed(ctx context.Context, ch <-chan codexrun.Event) <-chan codexrun.Event {
	return pipe(ctx, ch, func(ev codexrun.Event) bool {
		return ev.Type == codexrun.EventItemCompleted
	})
}

// AgentMessages returns a channel that passes only completed agent messages.
// Spawns a goroutine that exits when ctx is cancelled or ch is closed.
func AgentMessages(ctx context.Context, ch <-chan codexrun.Event) <-chan codexrun.Event {
	return pipe(ctx, ch, func(ev codexrun.Event) bool {
		if ev.Type != codexrun.EventItemCompleted {
			return false
		}
		_, ok := ev.Item.(codexrun.AgentMessageItem)
		return ok
	})
}

// Items returns a channel that passes item events (started, updated or
// completed) whose item has one of the given types.
func Items(ctx context.Context, ch <-chan codexrun.Event, types ...codexrun.ItemType) <-chan codexrun.Event {
	allowed := make(map[codexrun.ItemType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return pipe(ctx, ch, func(ev codexrun.Event) bool {
		if !IsItemEvent(ev.Type) || ev.Item == nil {
			return false
		}
		_, ok := allowed[ev.Item.ItemType()]
		return ok
	})
}

// IsItemEvent reports whether t carries an item.
// Convention: all item events use the "item." prefix.
func IsItemEvent(t codexrun.EventType) bool {
	return strings.HasPrefix(string(t), "item.")
}

// pipe spawns a goroutine that reads from ch, passes events matching
// the predicate to the returned channel, and closes it when ch closes
// or ctx is cancelled. Callers must either drain the returned channel
// or cancel ctx to avoid goroutine leaks. Events accepted by the
// predicate may be silently dropped if ctx is cancelled mid-send.
func pipe(ctx context.Context, ch <-chan codexrun.Event, accept func(codexrun.Event) bool) <-chan codexrun.Event {
	out := make(chan codexrun.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if accept(ev) && !trySend(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out
}

// trySend sends ev on out, returning true on success.
// Returns false if ctx is cancelled before the send completes.
func trySend(ctx context.Context, out chan<- codexrun.Event, ev codexrun.Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
