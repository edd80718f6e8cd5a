package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Delta is one message from the transport. Usually only Text is set; usage
// and image messages arrive on their own.
type Delta struct {
	Stream string // target stream for PumpStreams; ignored by Pump
	Text   string
	Usage  *Usage    // partial usage, summed into the calculated usage
	Given  *Usage    // final usage as reported by the transport
	Image  *ImageRef // out-of-band image
}

// Source yields deltas until io.EOF.
type Source interface {
	Recv() (Delta, error)
	Close() error
}

// Sink receives events in emission order.
type Sink interface {
	Write(ctx context.Context, events []Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, events []Event) error

func (f SinkFunc) Write(ctx context.Context, events []Event) error {
	return f(ctx, events)
}

// MultiSink writes every batch to each sink in turn, stopping at the first
// error.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, events []Event) error {
		for _, s := range sinks {
			if err := s.Write(ctx, events); err != nil {
				return err
			}
		}
		return nil
	})
}

// Pump feeds every delta from src into d and writes the resulting events to
// sink. When src ends, fails, or ctx is cancelled the decoder is finalized
// so that buffered input still reaches the sink. The source is closed on
// return.
func Pump(ctx context.Context, src Source, d *Decoder, sink Sink) error {
	route := func(Delta) *Decoder { return d }
	return pump(ctx, src, sink, route, func(ctx context.Context) error {
		return finish(ctx, d, sink)
	})
}

// PumpStreams is Pump for a transport interleaving several streams. Each
// delta goes to the decoder reg holds for its Stream, opened on first use;
// deltas without a Stream go to defaultID (a fresh id when empty). When src
// stops, every stream in reg is finalized in the order it was opened. The
// decoders stay registered so callers can still collect their stats.
func PumpStreams(ctx context.Context, src Source, reg *Registry, defaultID string, sink Sink) error {
	if defaultID == "" {
		defaultID = NewStreamID()
	}
	route := func(delta Delta) *Decoder {
		id := delta.Stream
		if id == "" {
			id = defaultID
		}
		return reg.Open(id)
	}
	return pump(ctx, src, sink, route, func(ctx context.Context) error {
		var errs []error
		for _, id := range reg.IDs() {
			d, err := reg.Get(id)
			if err != nil {
				continue
			}
			errs = append(errs, finish(ctx, d, sink))
		}
		return errors.Join(errs...)
	})
}

func pump(ctx context.Context, src Source, sink Sink, route func(Delta) *Decoder, done func(context.Context) error) (err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
	}()

	for {
		if cerr := ctx.Err(); cerr != nil {
			slog.Debug("decode pump cancelled", "error", cerr)
			return errors.Join(cerr, done(context.WithoutCancel(ctx)))
		}

		delta, rerr := src.Recv()
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return done(ctx)
			}
			if errors.Is(rerr, context.Canceled) || errors.Is(rerr, context.DeadlineExceeded) {
				slog.Debug("decode source cancelled", "error", rerr)
				return errors.Join(rerr, done(context.WithoutCancel(ctx)))
			}
			slog.Warn("decode source failed", "error", rerr)
			return errors.Join(fmt.Errorf("recv: %w", rerr), done(context.WithoutCancel(ctx)))
		}

		events, ferr := apply(route(delta), delta)
		if ferr != nil {
			return ferr
		}
		if len(events) == 0 {
			continue
		}
		if werr := sink.Write(ctx, events); werr != nil {
			return fmt.Errorf("write events: %w", werr)
		}
	}
}

// apply routes one delta to the decoder.
func apply(d *Decoder, delta Delta) ([]Event, error) {
	var out []Event
	if delta.Text != "" {
		events, err := d.Feed(d.StreamID(), delta.Text)
		if err != nil {
			return nil, err
		}
		out = append(out, events...)
	}
	if delta.Usage != nil {
		d.AddUsage(*delta.Usage)
	}
	if delta.Given != nil {
		d.SetGivenUsage(*delta.Given)
	}
	if delta.Image != nil {
		out = append(out, d.AddImage(*delta.Image)...)
	}
	return out, nil
}

func finish(ctx context.Context, d *Decoder, sink Sink) error {
	events, err := d.Finalize(d.StreamID())
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	if err := sink.Write(ctx, events); err != nil {
		return fmt.Errorf("write final events: %w", err)
	}
	return nil
}
