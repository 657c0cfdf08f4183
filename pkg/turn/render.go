package turn

import (
	"fmt"
	"sort"
	"strings"
)

var attrEscaper = strings.NewReplacer(`"`, "&quot;")

// Render serialises the event log into the context block sent to the model:
//
//	<thread>
//	<event intent="user_input">hello</event>
//	  <event intent="get_weather" status="success">sunny</event>
//	</thread>
//
// Metadata attributes follow intent in sorted key order; nil values are skipped.
func Render(state State) string {
	lines := make([]string, 0, len(state.Events))
	for _, event := range state.Events {
		lines = append(lines, renderEvent(event))
	}
	return "<thread>\n" + strings.Join(lines, "\n  ") + "\n</thread>"
}

func renderEvent(event Event) string {
	var b strings.Builder
	b.WriteString(`<event intent="`)
	b.WriteString(attrEscaper.Replace(string(event.Intent)))
	b.WriteByte('"')

	keys := make([]string, 0, len(event.Metadata))
	for k, v := range event.Metadata {
		if v == nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, k, attrEscaper.Replace(fmt.Sprint(event.Metadata[k])))
	}

	b.WriteByte('>')
	b.WriteString(event.Content)
	b.WriteString("</event>")
	return b.String()
}
