package turn

// Intent identifies what an event records: one of the reserved kinds or a tool name.
type Intent string

const (
	IntentUserInput  Intent = "user_input"
	IntentLMResponse Intent = "lm_response"
	IntentLLMError   Intent = "llm_error"

	// IntentNone is produced by classification when no tool should run. It never becomes an event.
	IntentNone Intent = "none"
)

// Kind discriminates reserved intents from tool names.
type Kind int

const (
	KindTool Kind = iota
	KindUserInput
	KindLMResponse
	KindLLMError
	KindNone
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindTool:
		return "tool"
	case KindUserInput:
		return "user_input"
	case KindLMResponse:
		return "lm_response"
	case KindLLMError:
		return "llm_error"
	case KindNone:
		return "none"
	default:
		return "invalid"
	}
}

// Kind returns the discriminator for i. Any non-reserved, non-empty value is a tool name.
func (i Intent) Kind() Kind {
	switch i {
	case IntentUserInput:
		return KindUserInput
	case IntentLMResponse:
		return KindLMResponse
	case IntentLLMError:
		return KindLLMError
	case IntentNone:
		return KindNone
	case "":
		return KindInvalid
	default:
		return KindTool
	}
}

func (i Intent) String() string {
	return string(i)
}

// ToolIntent is one tool call the classifier wants executed for a prompt.
type ToolIntent struct {
	Intent Intent         `json:"intent"`
	Args   map[string]any `json:"args"`
}
