package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/samsaffron/blockstream/internal/decode"
)

// maxScriptLine bounds a single transcript record.
const maxScriptLine = 4 * 1024 * 1024

// scriptRecord is one line of a transcript. Exactly one field is normally
// set, but a record may combine them; they are applied in field order.
type scriptRecord struct {
	Stream string           `json:"stream,omitempty"`
	Text   *string          `json:"text,omitempty"`
	Usage  *decode.Usage    `json:"usage,omitempty"`
	Given  *decode.Usage    `json:"given,omitempty"`
	Image  *decode.ImageRef `json:"image,omitempty"`
}

// Script is a Source replaying a JSON-lines transcript of transport
// messages:
//
//	{"text":"Hello\n```js\n"}
//	{"usage":{"promptTokens":12,"completionTokens":3}}
//	{"image":{"url":"https://example.com/a.png","size":2048}}
//	{"given":{"promptTokens":12,"completionTokens":40,"totalTokens":52}}
//
// A record may name the stream it belongs to ({"stream":"b","text":"..."}),
// so one transcript can interleave several streams; see decode.PumpStreams.
// Blank lines are skipped. Slightly malformed records, as produced by
// hand-edited or truncated transcripts, are repaired before decoding.
type Script struct {
	in   *contextReader
	scan *bufio.Scanner
	line int
}

// NewScript reads a transcript from r. A Recv blocked on r fails with
// ctx.Err() once ctx is done.
func NewScript(ctx context.Context, r io.Reader) *Script {
	in := newContextReader(ctx, r)
	scan := bufio.NewScanner(in)
	scan.Buffer(make([]byte, 0, 64*1024), maxScriptLine)
	return &Script{in: in, scan: scan}
}

// Recv returns the next transcript record as a delta.
func (s *Script) Recv() (decode.Delta, error) {
	for s.scan.Scan() {
		s.line++
		raw := strings.TrimSpace(s.scan.Text())
		if raw == "" {
			continue
		}
		var rec scriptRecord
		if err := unmarshalRecord([]byte(raw), &rec); err != nil {
			return decode.Delta{}, fmt.Errorf("transcript line %d: %w", s.line, err)
		}
		delta := decode.Delta{Stream: rec.Stream, Usage: rec.Usage, Given: rec.Given, Image: rec.Image}
		if rec.Text != nil {
			delta.Text = *rec.Text
		}
		return delta, nil
	}
	if err := s.scan.Err(); err != nil {
		return decode.Delta{}, fmt.Errorf("read transcript: %w", err)
	}
	return decode.Delta{}, io.EOF
}

// Close closes the underlying reader when it supports it.
func (s *Script) Close() error {
	return s.in.Close()
}

// unmarshalRecord decodes data into v, repairing it first if it is not
// valid JSON.
func unmarshalRecord(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	if _, ok := err.(*json.SyntaxError); ok {
		fixed, rerr := jsonrepair.JSONRepair(string(data))
		if rerr != nil {
			return err
		}
		return json.Unmarshal([]byte(fixed), v)
	}
	return err
}
