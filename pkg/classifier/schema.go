package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/harun/agentcore/pkg/turn"
	"github.com/xeipuuv/gojsonschema"
)

const outputSchema = `{
  "type": "object",
  "required": ["intents"],
  "properties": {
    "intents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["intent"],
        "properties": {
          "intent": {"type": "string", "minLength": 1},
          "args": {"type": ["object", "null"]}
        }
      }
    }
  }
}`

var outputSchemaLoader = gojsonschema.NewStringLoader(outputSchema)

type output struct {
	Intents []turn.ToolIntent `json:"intents"`
}

// ParseOutput extracts tool intents from a model reply. Markdown code fences around
// the JSON object are tolerated.
func ParseOutput(text string) ([]turn.ToolIntent, error) {
	payload := stripFences(text)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidOutput)
	}

	result, err := gojsonschema.Validate(outputSchemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutput, strings.Join(errs, "; "))
	}

	var out output
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	for i := range out.Intents {
		if out.Intents[i].Args == nil {
			out.Intents[i].Args = map[string]any{}
		}
	}
	return out.Intents, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
