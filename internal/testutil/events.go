package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samsaffron/blockstream/internal/decode"
)

// Collector is a decode.Sink that records every event it is given.
type Collector struct {
	mu     sync.Mutex
	events []decode.Event
}

// Write implements decode.Sink.
func (c *Collector) Write(_ context.Context, events []decode.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

// Events returns a copy of the recorded events.
func (c *Collector) Events() []decode.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]decode.Event(nil), c.events...)
}

// FixedClock returns a clock stuck at one instant, so decoded events compare
// equal across runs.
func FixedClock() func() time.Time {
	t0 := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

// Decode feeds chunks to a fresh decoder for streamID using FixedClock,
// finalizes it and returns every event.
func Decode(t testing.TB, streamID string, chunks []string, opts ...decode.Option) []decode.Event {
	t.Helper()
	d := decode.NewDecoder(streamID, append([]decode.Option{decode.WithClock(FixedClock())}, opts...)...)
	var all []decode.Event
	for _, c := range chunks {
		events, err := d.Feed(streamID, c)
		if err != nil {
			t.Fatalf("Feed(%q): %v", c, err)
		}
		all = append(all, events...)
	}
	events, err := d.Finalize(streamID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return append(all, events...)
}
