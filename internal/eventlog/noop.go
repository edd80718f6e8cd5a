package eventlog

import (
	"context"

	"github.com/samsaffron/blockstream/internal/decode"
)

// NoopStore is a no-op implementation of Store used when persistence is
// disabled. It discards all writes and returns empty results for reads.
type NoopStore struct{}

func (s *NoopStore) Write(ctx context.Context, events []decode.Event) error {
	return nil
}

func (s *NoopStore) Events(ctx context.Context, streamID string) ([]decode.Event, error) {
	return nil, nil
}

func (s *NoopStore) Streams(ctx context.Context, limit int) ([]StreamSummary, error) {
	return nil, nil
}

func (s *NoopStore) Delete(ctx context.Context, streamID string) error {
	return nil
}

func (s *NoopStore) Close() error {
	return nil
}
