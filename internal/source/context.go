package source

import (
	"context"
	"io"
	"sync"
)

// readResult is the outcome of one Read on the wrapped reader.
type readResult struct {
	data []byte
	err  error
}

// contextReader lets a Read on a blocking io.Reader (a pipe, a terminal)
// return as soon as ctx is done. The wrapped Read runs on its own goroutine
// one call ahead of the consumer; a Read still blocked at cancellation is
// abandoned and released by Close.
type contextReader struct {
	ctx     context.Context
	r       io.Reader
	results chan readResult
	done    chan struct{}
	start   sync.Once
	stop    sync.Once

	pending []byte
	err     error
}

func newContextReader(ctx context.Context, r io.Reader) *contextReader {
	return &contextReader{
		ctx:     ctx,
		r:       r,
		results: make(chan readResult),
		done:    make(chan struct{}),
	}
}

func (c *contextReader) loop() {
	for {
		buf := make([]byte, DefaultChunkSize)
		n, err := c.r.Read(buf)
		select {
		case c.results <- readResult{data: buf[:n], err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Read returns buffered bytes if there are any, otherwise whatever the next
// underlying Read delivers. It never waits to fill p.
func (c *contextReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(c.pending) == 0 {
		if c.err != nil {
			return 0, c.err
		}
		c.start.Do(func() { go c.loop() })
		select {
		case <-c.ctx.Done():
			c.err = c.ctx.Err()
		case res := <-c.results:
			c.pending, c.err = res.data, res.err
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

// Close stops the read goroutine and closes the wrapped reader when it is
// an io.Closer, which also unblocks a pending Read on pipes and files.
func (c *contextReader) Close() error {
	c.stop.Do(func() { close(c.done) })
	if cl, ok := c.r.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
