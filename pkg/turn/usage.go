package turn

// Usage is the token accounting of a turn.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Record is a usage report from a single source. Sources name their counters either
// prompt/completion or input/output; zero means absent.
type Record struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	InputTokens      int `json:"input_tokens,omitempty"`
	OutputTokens     int `json:"output_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Prompt returns prompt_tokens, falling back to input_tokens.
func (r Record) Prompt() int {
	if r.PromptTokens != 0 {
		return r.PromptTokens
	}
	return r.InputTokens
}

// Completion returns completion_tokens, falling back to output_tokens.
func (r Record) Completion() int {
	if r.CompletionTokens != 0 {
		return r.CompletionTokens
	}
	return r.OutputTokens
}

// Total returns the source's own total when present, else prompt + completion.
func (r Record) Total() int {
	if r.TotalTokens != 0 {
		return r.TotalTokens
	}
	return r.Prompt() + r.Completion()
}

// IsZero reports whether the record carries no counters.
func (r Record) IsZero() bool {
	return r == Record{}
}

// Usage normalises r into a Usage.
func (r Record) Usage() Usage {
	return Usage{
		PromptTokens:     r.Prompt(),
		CompletionTokens: r.Completion(),
		TotalTokens:      r.Total(),
	}
}

// Merge sums two independently tracked usage sources. Prompt, completion and total are
// summed independently so a pre-computed total on either side is respected.
func Merge(a, b Record) Usage {
	ua, ub := a.Usage(), b.Usage()
	return Usage{
		PromptTokens:     ua.PromptTokens + ub.PromptTokens,
		CompletionTokens: ua.CompletionTokens + ub.CompletionTokens,
		TotalTokens:      ua.TotalTokens + ub.TotalTokens,
	}
}
