package decode

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
)

type sliceSource struct {
	deltas []Delta
	err    error // returned once deltas run out; io.EOF when nil
	before func(i int)
	i      int
	closed bool
}

func (s *sliceSource) Recv() (Delta, error) {
	if s.before != nil {
		s.before(s.i)
	}
	if s.i >= len(s.deltas) {
		if s.err != nil {
			return Delta{}, s.err
		}
		return Delta{}, io.EOF
	}
	d := s.deltas[s.i]
	s.i++
	return d, nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

type collectSink struct {
	events []Event
	err    error
}

func (c *collectSink) Write(_ context.Context, events []Event) error {
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, events...)
	return nil
}

func TestPump(t *testing.T) {
	src := &sliceSource{deltas: []Delta{
		{Text: "Hel"},
		{Text: "lo\n```py\nprint(1)\n"},
		{Usage: &Usage{PromptTokens: 4, CompletionTokens: 2}},
		{Image: &ImageRef{URL: "https://example.com/a.png", Size: 10}},
		{Text: "```\n"},
		{Given: &Usage{PromptTokens: 4, CompletionTokens: 6, TotalTokens: 10}},
	}}
	sink := &collectSink{}
	d := NewDecoder(testStream, WithClock(fixedClock()))

	if err := Pump(context.Background(), src, d, sink); err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if !src.closed {
		t.Error("source not closed")
	}
	assertSeq(t, sink.events)

	if n := len(ofType(sink.events, EventImage)); n != 1 {
		t.Errorf("got %d image events", n)
	}
	ends := ofType(sink.events, EventBlockEnd)
	if len(ends) != 1 {
		t.Fatalf("got %d block.end events", len(ends))
	}
	end := ends[0]
	if end.Given == nil || end.Given.TotalTokens != 10 {
		t.Errorf("given usage = %+v", end.Given)
	}
	if end.Calculated == nil || *end.Calculated != (Usage{4, 2, 6}) {
		t.Errorf("calculated usage = %+v", end.Calculated)
	}
	if got := JoinLines(sink.events); got != "Hello\n```py\nprint(1)\n```\n" {
		t.Errorf("JoinLines = %q", got)
	}
}

func TestPumpSourceErrorFinalizes(t *testing.T) {
	boom := errors.New("connection reset")
	src := &sliceSource{deltas: []Delta{{Text: "partial"}}, err: boom}
	sink := &collectSink{}
	d := NewDecoder(testStream, WithClock(fixedClock()))

	err := Pump(context.Background(), src, d, sink)
	if !errors.Is(err, boom) {
		t.Fatalf("Pump error = %v, want %v", err, boom)
	}
	lines := ofType(sink.events, EventToplevelLine)
	if len(lines) != 1 || lines[0].Line != "partial" {
		t.Errorf("buffered line not flushed: %+v", lines)
	}
	if len(ofType(sink.events, EventBlockEnd)) != 1 {
		t.Error("block not ended after source error")
	}
}

func TestPumpCancelFinalizes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &sliceSource{
		deltas: []Delta{{Text: "par"}, {Text: "tial"}, {Text: "never"}},
		before: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}
	sink := &collectSink{}
	d := NewDecoder(testStream, WithClock(fixedClock()))

	err := Pump(ctx, src, d, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Pump error = %v, want context.Canceled", err)
	}
	lines := ofType(sink.events, EventToplevelLine)
	if len(lines) != 1 || lines[0].Line != "partial" {
		t.Errorf("lines = %+v", lines)
	}
	if !src.closed {
		t.Error("source not closed")
	}
}

func TestPumpStreams(t *testing.T) {
	src := &sliceSource{deltas: []Delta{
		{Stream: "b", Text: "bee"},
		{Text: "one\n"},
		{Stream: "a", Text: "ay\n"},
		{Stream: "b", Usage: &Usage{PromptTokens: 2, CompletionTokens: 1}},
		{Text: "two"},
	}}
	sink := &collectSink{}
	reg := NewRegistry(WithClock(fixedClock()))

	if err := PumpStreams(context.Background(), src, reg, "main", sink); err != nil {
		t.Fatalf("PumpStreams: %v", err)
	}
	if !src.closed {
		t.Error("source not closed")
	}

	byStream := make(map[string][]Event)
	for _, e := range sink.events {
		byStream[e.StreamID] = append(byStream[e.StreamID], e)
	}
	want := map[string]string{"b": "bee", "main": "one\ntwo", "a": "ay\n"}
	for id, text := range want {
		events := byStream[id]
		assertSeq(t, events)
		if got := JoinLines(events); got != text {
			t.Errorf("stream %s: JoinLines = %q, want %q", id, got, text)
		}
		if n := len(ofType(events, EventBlockEnd)); n != 1 {
			t.Errorf("stream %s: %d block.end events", id, n)
		}
	}

	if got := reg.IDs(); !reflect.DeepEqual(got, []string{"b", "main", "a"}) {
		t.Errorf("IDs = %q", got)
	}
	b, err := reg.Get("b")
	if err != nil {
		t.Fatal(err)
	}
	if stats := b.CollectStats(); stats.Calculated.TotalTokens != 3 {
		t.Errorf("stream b calculated usage = %+v", stats.Calculated)
	}

	// Streams are finalized in the order they were opened.
	var order []string
	for _, e := range sink.events {
		if e.Type == EventBlockEnd {
			order = append(order, e.StreamID)
		}
	}
	if !reflect.DeepEqual(order, []string{"b", "main", "a"}) {
		t.Errorf("finalize order = %q", order)
	}
}

func TestPumpSinkError(t *testing.T) {
	boom := errors.New("disk full")
	src := &sliceSource{deltas: []Delta{{Text: "line\n"}}}
	err := Pump(context.Background(), src, NewDecoder(testStream), &collectSink{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("Pump error = %v, want %v", err, boom)
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &collectSink{}, &collectSink{}
	events := []Event{{Type: EventBlockBegin, Seq: 1}}
	if err := MultiSink(a, b).Write(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Errorf("a=%d b=%d events", len(a.events), len(b.events))
	}
}
