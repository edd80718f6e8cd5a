package render

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/samsaffron/blockstream/internal/decode"
	"github.com/samsaffron/blockstream/internal/testutil"
)

func decodeInput(t *testing.T, input string, opts ...decode.Option) []decode.Event {
	t.Helper()
	return testutil.Decode(t, "s", []string{input}, opts...)
}

func write(t *testing.T, sink decode.Sink, events []decode.Event) {
	t.Helper()
	if err := sink.Write(context.Background(), events); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

const sample = "Hello\n```js\nconst x = 1;\n```\nBye"

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "yaml", "msgpack", "pretty"} {
		if f, err := ParseFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseFormat(%q) = %q, %v", s, f, err)
		}
	}
	if f, err := ParseFormat(""); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestJSONLines(t *testing.T) {
	events := decodeInput(t, sample)
	var buf bytes.Buffer
	write(t, NewJSON(&buf), events)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != len(events) {
		t.Fatalf("got %d lines for %d events", len(lines), len(events))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["type"] != "block.begin" || first["streamId"] != "s" || first["seq"] != float64(1) {
		t.Errorf("first record = %v", first)
	}
	if _, ok := first["line"]; ok {
		t.Error("empty fields should be omitted")
	}
}

func TestYAMLDocuments(t *testing.T) {
	events := decodeInput(t, sample)
	var buf bytes.Buffer
	write(t, NewYAML(&buf), events)

	dec := yaml.NewDecoder(&buf)
	var got []decode.Event
	for {
		var e decode.Event
		if err := dec.Decode(&e); err != nil {
			break
		}
		got = append(got, e)
	}
	if len(got) != len(events) {
		t.Fatalf("decoded %d documents, want %d", len(got), len(events))
	}
	if got := decode.JoinLines(got); got != sample {
		t.Errorf("JoinLines = %q", got)
	}
}

func TestMsgpackRoundTrip(t *testing.T) {
	events := decodeInput(t, sample)
	var buf bytes.Buffer
	write(t, NewMsgpack(&buf), events)

	got, err := DecodeMsgpack(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(events) {
		t.Fatalf("decoded %d events, want %d", len(got), len(events))
	}
	for i := range got {
		if got[i].Type != events[i].Type || got[i].Seq != events[i].Seq || got[i].Line != events[i].Line {
			t.Errorf("event %d = %+v, want %+v", i, got[i], events[i])
		}
	}
	end := got[len(got)-1]
	if end.Snapshot == nil || *end.Snapshot != *events[len(events)-1].Snapshot {
		t.Errorf("snapshot = %+v", end.Snapshot)
	}
}

func TestNewUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, Format("csv"), Options{}); err == nil {
		t.Error("expected error")
	}
}
