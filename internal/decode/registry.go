package decode

import (
	"fmt"
	"slices"
	"sync"
)

// Registry keeps one Decoder per stream. The registry itself is safe for
// concurrent use; each decoder must still be driven by one goroutine at a
// time.
type Registry struct {
	mu       sync.Mutex
	opts     []Option
	decoders map[string]*Decoder
	order    []string
}

// NewRegistry creates a registry whose decoders are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:     opts,
		decoders: make(map[string]*Decoder),
	}
}

// Open returns the decoder for streamID, creating it if needed. An empty
// streamID opens a new stream under a fresh id.
func (r *Registry) Open(streamID string) *Decoder {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.decoders[streamID]; ok && streamID != "" {
		return d
	}
	d := NewDecoder(streamID, r.opts...)
	r.decoders[d.StreamID()] = d
	r.order = append(r.order, d.StreamID())
	return d
}

// Get returns the decoder for an open stream.
func (r *Registry) Get(streamID string) (*Decoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.decoders[streamID]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", streamID, ErrUnknownStream)
	}
	return d, nil
}

// Close finalizes the stream and forgets its decoder.
func (r *Registry) Close(streamID string) ([]Event, error) {
	r.mu.Lock()
	d, ok := r.decoders[streamID]
	if ok {
		delete(r.decoders, streamID)
		r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == streamID })
	}
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("close %q: %w", streamID, ErrUnknownStream)
	}
	return d.Finalize(streamID)
}

// IDs returns the open streams in the order they were opened.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.order)
}

// Len returns the number of open streams.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.decoders)
}
