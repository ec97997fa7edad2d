package codexrun

// Drain reads st until its events channel closes, calling handler for each
// event. If handler returns an error, the turn is closed and that error is
// returned. Otherwise Drain returns st.Err().
func Drain(st *StreamedTurn, handler func(Event) error) error {
	for ev := range st.Events() {
		if err := handler(ev); err != nil {
			_ = st.Close()
			return err
		}
	}
	return st.Err()
}

// turnBuilder reduces an event stream to a Turn.
type turnBuilder struct {
	items         []Item
	finalResponse string
	usage         *Usage
}

func (b *turnBuilder) observe(ev Event) error {
	switch ev.Type {
	case EventItemCompleted:
		b.items = append(b.items, ev.Item)
		if msg, ok := ev.Item.(AgentMessageItem); ok {
			b.finalResponse = msg.Text
		}
	case EventTurnCompleted:
		b.usage = ev.Usage
	case EventTurnFailed:
		var msg string
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		return &TurnFailedError{Message: msg}
	}
	return nil
}

func (b *turnBuilder) turn() *Turn {
	return &Turn{
		Items:         b.items,
		FinalResponse: b.finalResponse,
		Usage:         b.usage,
	}
}
