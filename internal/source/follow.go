package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/samsaffron/blockstream/internal/decode"
)

// Follow is a Source tailing a file that another process is still writing,
// like tail -f. It first yields the existing content, then every appended
// byte, until the context is cancelled or the file is removed.
type Follow struct {
	ctx  context.Context
	path string
	f    *os.File
	w    *fsnotify.Watcher
	z    Sizer
	buf  []byte
	off  int64
}

// NewFollow opens path and starts watching it for writes. The parent
// directory is watched rather than the file, since an open descriptor keeps
// a removed file alive and no remove event would reach a file watch.
func NewFollow(ctx context.Context, path string, z Sizer) (*Follow, error) {
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		f.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if z == nil {
		z = Fixed(0)
	}
	return &Follow{ctx: ctx, path: path, f: f, w: w, z: z}, nil
}

// Recv blocks until new content is appended. It returns the context error
// once ctx is done and io.EOF when the file is removed or renamed.
func (s *Follow) Recv() (decode.Delta, error) {
	for {
		n := s.z.Next()
		if cap(s.buf) < n {
			s.buf = make([]byte, n)
		}
		got, err := s.f.Read(s.buf[:n])
		if got > 0 {
			s.off += int64(got)
			return decode.Delta{Text: string(s.buf[:got])}, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return decode.Delta{}, fmt.Errorf("read %s: %w", s.path, err)
		}

		if err := s.wait(); err != nil {
			return decode.Delta{}, err
		}
	}
}

// wait blocks until the file changes.
func (s *Follow) wait() error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case ev, ok := <-s.w.Events:
			if !ok {
				return io.EOF
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				slog.Debug("followed file went away", "path", s.path, "op", ev.Op.String())
				return io.EOF
			case ev.Has(fsnotify.Write):
				return s.checkTruncate()
			}
		case err, ok := <-s.w.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("watch %s: %w", s.path, err)
		}
	}
}

// checkTruncate rewinds when the file shrank below the read offset.
func (s *Follow) checkTruncate() error {
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	if info.Size() >= s.off {
		return nil
	}
	slog.Debug("followed file truncated", "path", s.path, "size", info.Size(), "offset", s.off)
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek %s: %w", s.path, err)
	}
	s.off = 0
	return nil
}

// Close stops watching and closes the file.
func (s *Follow) Close() error {
	return errors.Join(s.w.Close(), s.f.Close())
}
