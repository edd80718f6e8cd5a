// Package render writes decoder events to a terminal or a pipe as JSON
// lines, YAML documents, msgpack records or styled text.
package render

import (
	"fmt"
	"io"

	"github.com/samsaffron/blockstream/internal/decode"
)

// Format selects an output encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatMsgpack Format = "msgpack"
	FormatPretty  Format = "pretty"
)

// ParseFormat validates a format name from flags or config.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatYAML, FormatMsgpack, FormatPretty:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want json, yaml, msgpack or pretty)", s)
}

// Options configure pretty output.
type Options struct {
	Style string // glamour standard style, e.g. "dark"
	Width int    // word wrap width for toplevel text; 0 means 80
	Color bool   // highlight code and style headers
}

// New returns a sink writing events to w in format f.
func New(w io.Writer, f Format, opts Options) (decode.Sink, error) {
	switch f {
	case FormatJSON, "":
		return NewJSON(w), nil
	case FormatYAML:
		return NewYAML(w), nil
	case FormatMsgpack:
		return NewMsgpack(w), nil
	case FormatPretty:
		return NewPretty(w, opts)
	}
	return nil, fmt.Errorf("unknown output format %q", f)
}
