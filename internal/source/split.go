// Package source produces decoder deltas from files, readers, transcripts
// and growing logs, cut into chunks the way a network transport would.
package source

import (
	"context"
	"io"
	"math/rand"

	"github.com/samsaffron/blockstream/internal/decode"
)

// DefaultChunkSize is the read size used when no chunk size is configured.
const DefaultChunkSize = 4096

// Sizer yields the byte length of each successive chunk.
type Sizer interface {
	Next() int
}

type fixedSizer int

func (n fixedSizer) Next() int { return int(n) }

// Fixed cuts input into chunks of n bytes. n <= 0 means DefaultChunkSize.
func Fixed(n int) Sizer {
	if n <= 0 {
		n = DefaultChunkSize
	}
	return fixedSizer(n)
}

// Bytes cuts input into single bytes, the worst case for a stream decoder.
func Bytes() Sizer {
	return fixedSizer(1)
}

type randomSizer struct {
	r   *rand.Rand
	max int
}

func (s *randomSizer) Next() int { return s.r.Intn(s.max) + 1 }

// Random cuts input into chunks of 1..max bytes drawn from a seeded
// generator, so a failing split can be reproduced from its seed.
func Random(seed int64, max int) Sizer {
	if max <= 0 {
		max = 16
	}
	return &randomSizer{r: rand.New(rand.NewSource(seed)), max: max}
}

// Split cuts s into chunks sized by z. Chunks may end inside a multi-byte
// rune.
func Split(s string, z Sizer) []string {
	var chunks []string
	for len(s) > 0 {
		n := z.Next()
		if n <= 0 || n > len(s) {
			n = len(s)
		}
		chunks = append(chunks, s[:n])
		s = s[n:]
	}
	return chunks
}

// Reader is a Source reading text deltas from an io.Reader. Each Recv
// returns as soon as any input is available, cut to at most the next Sizer
// length, so a slow producer is decoded as it writes. Over in-memory or
// file input the chunks follow the Sizer exactly.
type Reader struct {
	in  *contextReader
	z   Sizer
	buf []byte
	err error
}

// NewReader wraps r. A Recv blocked on r returns ctx.Err() once ctx is
// done. If r is an io.Closer it is closed with the source.
func NewReader(ctx context.Context, r io.Reader, z Sizer) *Reader {
	if z == nil {
		z = Fixed(0)
	}
	return &Reader{in: newContextReader(ctx, r), z: z}
}

// Recv returns the next chunk, or io.EOF once r is drained.
func (r *Reader) Recv() (decode.Delta, error) {
	for {
		if r.err != nil {
			return decode.Delta{}, r.err
		}
		n := r.z.Next()
		if n <= 0 {
			n = DefaultChunkSize
		}
		if cap(r.buf) < n {
			r.buf = make([]byte, n)
		}
		got, err := r.in.Read(r.buf[:n])
		r.err = err
		if got > 0 {
			return decode.Delta{Text: string(r.buf[:got])}, nil
		}
	}
}

// Close closes the underlying reader when it supports it.
func (r *Reader) Close() error {
	return r.in.Close()
}

// Deltas is a Source replaying a fixed list of deltas.
type Deltas struct {
	deltas []decode.Delta
	next   int
}

// Strings returns a Source yielding each chunk as a text delta.
func Strings(chunks ...string) *Deltas {
	deltas := make([]decode.Delta, len(chunks))
	for i, c := range chunks {
		deltas[i] = decode.Delta{Text: c}
	}
	return &Deltas{deltas: deltas}
}

// NewDeltas returns a Source replaying deltas in order.
func NewDeltas(deltas ...decode.Delta) *Deltas {
	return &Deltas{deltas: deltas}
}

func (d *Deltas) Recv() (decode.Delta, error) {
	if d.next >= len(d.deltas) {
		return decode.Delta{}, io.EOF
	}
	delta := d.deltas[d.next]
	d.next++
	return delta, nil
}

func (d *Deltas) Close() error { return nil }
