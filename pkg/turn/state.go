package turn

// Status values written to the "status" metadata key of tool events.
type Status string

const (
	StatusSuccess            Status = "success"
	StatusError              Status = "error"
	StatusPending            Status = "pending"
	StatusWaitingForFeedback Status = "waiting_for_feedback"
)

// Metadata keys set by the turn driver and tool coordinator.
const (
	MetadataStatus = "status"
	MetadataModel  = "model"
)

// Metadata holds free-form annotations on an event.
type Metadata map[string]any

// Clone returns a shallow copy of m. Nil stays nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Event is one entry of the turn trace.
type Event struct {
	Intent   Intent         `json:"intent"`
	Content  string         `json:"content"`
	Args     map[string]any `json:"args,omitempty"`
	Metadata Metadata       `json:"metadata"`
}

func (e Event) clone() Event {
	out := e
	out.Metadata = e.Metadata.Clone()
	if out.Metadata == nil {
		out.Metadata = Metadata{}
	}
	if e.Args != nil {
		out.Args = make(map[string]any, len(e.Args))
		for k, v := range e.Args {
			out.Args[k] = v
		}
	}
	return out
}

// State is the complete record of one turn. The zero value is an empty log with zero usage.
type State struct {
	Usage Usage `json:"usage"`
	// SystemMessage overrides the default system prompt when non-empty.
	SystemMessage string  `json:"systemMessage,omitempty"`
	Events        []Event `json:"events"`
}

// Clone returns a copy of s that shares no slices or maps with it.
func (s State) Clone() State {
	out := State{
		Usage:         s.Usage,
		SystemMessage: s.SystemMessage,
		Events:        make([]Event, len(s.Events)),
	}
	for i, e := range s.Events {
		out.Events[i] = e.clone()
	}
	return out
}

// Len returns the number of events.
func (s State) Len() int {
	return len(s.Events)
}

// Last returns the most recent event.
func (s State) Last() (Event, bool) {
	if len(s.Events) == 0 {
		return Event{}, false
	}
	return s.Events[len(s.Events)-1], true
}

// WithUsage returns a copy of s with usage replaced.
func (s State) WithUsage(u Usage) State {
	out := s.Clone()
	out.Usage = u
	return out
}
