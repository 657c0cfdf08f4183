package turn

// AppendOption customises the event built by Append.
type AppendOption func(*Event)

// WithMetadata sets the event metadata. The map is copied.
func WithMetadata(m Metadata) AppendOption {
	return func(e *Event) {
		if m != nil {
			e.Metadata = m.Clone()
		}
	}
}

// WithArgs sets the tool arguments. Ignored for user_input and lm_response events.
func WithArgs(args map[string]any) AppendOption {
	return func(e *Event) {
		if args == nil {
			return
		}
		e.Args = make(map[string]any, len(args))
		for k, v := range args {
			e.Args[k] = v
		}
	}
}

// Append returns a new State with one event appended to the events of state.
// Usage and SystemMessage are carried over unchanged.
func Append(state State, intent Intent, content string, opts ...AppendOption) State {
	event := Event{
		Intent:   intent,
		Content:  content,
		Metadata: Metadata{},
	}
	for _, opt := range opts {
		opt(&event)
	}
	switch intent.Kind() {
	case KindUserInput, KindLMResponse:
		event.Args = nil
	}

	events := make([]Event, len(state.Events), len(state.Events)+1)
	copy(events, state.Events)

	return State{
		Usage:         state.Usage,
		SystemMessage: state.SystemMessage,
		Events:        append(events, event),
	}
}

// AppendToolIntent appends an event for a classified tool call, carrying its arguments.
func AppendToolIntent(state State, ti ToolIntent, content string, metadata Metadata) State {
	return Append(state, ti.Intent, content, WithArgs(ti.Args), WithMetadata(metadata))
}
