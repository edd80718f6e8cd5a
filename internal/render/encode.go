package render

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/samsaffron/blockstream/internal/decode"
)

// encoder is the shape shared by the json, yaml and msgpack encoders.
type encoder interface {
	Encode(v any) error
}

// recordSink writes one record per event.
type recordSink struct {
	name string
	enc  encoder
}

func (s *recordSink) Write(_ context.Context, events []decode.Event) error {
	for i := range events {
		if err := s.enc.Encode(&events[i]); err != nil {
			return fmt.Errorf("encode %s event %d: %w", s.name, events[i].Seq, err)
		}
	}
	return nil
}

// NewJSON writes one JSON object per line.
func NewJSON(w io.Writer) decode.Sink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &recordSink{name: "json", enc: enc}
}

// NewYAML writes one YAML document per event.
func NewYAML(w io.Writer) decode.Sink {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &recordSink{name: "yaml", enc: enc}
}

// NewMsgpack writes a stream of msgpack maps keyed like the JSON output.
func NewMsgpack(w io.Writer) decode.Sink {
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	return &recordSink{name: "msgpack", enc: enc}
}

// DecodeMsgpack reads every event from a msgpack stream written by
// NewMsgpack.
func DecodeMsgpack(r io.Reader) ([]decode.Event, error) {
	dec := msgpack.NewDecoder(r)
	dec.SetCustomStructTag("json")
	var events []decode.Event
	for {
		var e decode.Event
		err := dec.Decode(&e)
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, fmt.Errorf("decode msgpack event: %w", err)
		}
		events = append(events, e)
	}
}
