package decode

import "errors"

var (
	// ErrStreamMismatch is returned when a call names a stream other than
	// the one the decoder was opened for.
	ErrStreamMismatch = errors.New("stream id mismatch")
	// ErrUnknownStream is returned by Registry lookups for unopened streams.
	ErrUnknownStream = errors.New("unknown stream")
)
