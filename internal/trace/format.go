package trace

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects how events are encoded.
type Format uint8

const (
	FormatAuto    Format = iota // pick by output file extension
	FormatText                  // one human-readable line per event
	FormatNDJSON                // newline-delimited JSON
	FormatMsgpack               // a stream of msgpack maps
)

// ParseFormat converts a string to Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "ndjson", "json":
		return FormatNDJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatAuto, fmt.Errorf("invalid trace format: %q (expected: auto|text|ndjson|msgpack)", s)
	}
}

// FormatEvent encodes one event.
func FormatEvent(ev *Event, format Format) []byte {
	switch format {
	case FormatNDJSON:
		return formatNDJSON(ev)
	case FormatMsgpack:
		return formatMsgpack(ev)
	}
	return formatText(ev)
}

// jsonEvent spells the enums out and fixes the time layout.
type jsonEvent struct {
	*Event
	Time      string `json:"time"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope"`
	ElapsedUS int64  `json:"elapsed_us,omitempty"`
}

func formatNDJSON(ev *Event) []byte {
	data, err := json.Marshal(jsonEvent{
		Event:     ev,
		Time:      ev.Time.Format(time.RFC3339Nano),
		Kind:      ev.Kind.String(),
		Scope:     ev.Scope.String(),
		ElapsedUS: ev.Elapsed.Microseconds(),
	})
	if err != nil {
		data = fmt.Appendf(nil, `{"seq":%d,"error":%q}`, ev.Seq, err.Error())
	}
	return append(data, '\n')
}

func formatMsgpack(ev *Event) []byte {
	data, err := msgpack.Marshal(ev)
	if err != nil {
		// A map with only the error keeps the stream decodable.
		data, _ = msgpack.Marshal(map[string]any{"seq": ev.Seq, "error": err.Error()})
	}
	return data
}

// formatText renders "#seq [scope] →/←/• name (detail) {k=v, ...} [elapsed]".
func formatText(ev *Event) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#%-6d [%s] ", ev.Seq, ev.Scope)
	if ev.ParentID > 0 {
		sb.WriteString("  ")
	}
	switch ev.Kind {
	case KindSpanBegin:
		sb.WriteString("→ ")
	case KindSpanEnd:
		sb.WriteString("← ")
	default:
		sb.WriteString("• ")
	}
	sb.WriteString(ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&sb, " (%s)", ev.Detail)
	}
	if len(ev.Extra) > 0 {
		keys := make([]string, 0, len(ev.Extra))
		for k := range ev.Extra {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + ev.Extra[k]
		}
		fmt.Fprintf(&sb, " {%s}", strings.Join(pairs, ", "))
	}
	if ev.Kind == KindSpanEnd && ev.Elapsed > 0 {
		fmt.Fprintf(&sb, " [%s]", ev.Elapsed.Round(time.Microsecond))
	}
	sb.WriteByte('\n')
	return []byte(sb.String())
}
