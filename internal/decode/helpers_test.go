package decode

import (
	"math/rand"
	"testing"
	"time"
)

const testStream = "stream-1"

// fixedClock returns a clock that always reports the same instant so that
// event slices can be compared with reflect.DeepEqual.
func fixedClock() func() time.Time {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

// decodeChunks feeds chunks to a fresh decoder and finalizes it.
func decodeChunks(t *testing.T, chunks []string, opts ...Option) []Event {
	t.Helper()
	d := NewDecoder(testStream, append([]Option{WithClock(fixedClock())}, opts...)...)
	var all []Event
	for _, c := range chunks {
		events, err := d.Feed(testStream, c)
		if err != nil {
			t.Fatalf("Feed(%q): %v", c, err)
		}
		all = append(all, events...)
	}
	events, err := d.Finalize(testStream)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return append(all, events...)
}

// splitEvery cuts s into chunks of n bytes; n <= 0 means one chunk.
func splitEvery(s string, n int) []string {
	if n <= 0 || n >= len(s) {
		return []string{s}
	}
	var chunks []string
	for len(s) > n {
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return append(chunks, s)
}

// splitRandom cuts s into chunks of 1..max bytes, possibly inside runes.
func splitRandom(r *rand.Rand, s string, max int) []string {
	var chunks []string
	for len(s) > 0 {
		n := r.Intn(max) + 1
		if n > len(s) {
			n = len(s)
		}
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func withoutFragments(events []Event) []Event {
	var out []Event
	for _, e := range events {
		if !e.Type.IsFragment() {
			out = append(out, e)
		}
	}
	return out
}

func ofType(events []Event, typ EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// sectionEvents drops block level events.
func sectionEvents(events []Event) []Event {
	var out []Event
	for _, e := range events {
		switch e.Type {
		case EventBlockBegin, EventBlockEnd, EventBlockStats:
			continue
		}
		out = append(out, e)
	}
	return out
}

func assertSeq(t *testing.T, events []Event) {
	t.Helper()
	for i, e := range events {
		if e.Seq != int64(i+1) {
			t.Fatalf("event %d (%s) has seq %d, want %d", i, e.Type, e.Seq, i+1)
		}
	}
}
