package report

import (
	"fmt"
	"io"
	"strings"
)

// Format selects the output encoding.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatText, fmt.Errorf("invalid format: %q (expected: text|json|msgpack)", s)
	}
}

// TextOpts configures the human-readable table.
type TextOpts struct {
	Color bool
	// Width caps the type column; 0 means 40.
	Width int
	// Physical adds the physical parameter column.
	Physical bool
}

// Write renders doc in the requested format.
func Write(w io.Writer, doc Document, format Format, opts TextOpts) error {
	switch format {
	case FormatJSON:
		return JSON(w, doc)
	case FormatMsgpack:
		return Msgpack(w, doc)
	default:
		return Text(w, doc, opts)
	}
}
