// Package follow streams entries from a log file as another process appends
// to it.
package follow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/logging"
)

// DefaultPollInterval is how often the file is re-read when no
// notification arrives. Some filesystems (network mounts, some containers)
// never deliver write events.
const DefaultPollInterval = time.Second

type options struct {
	logger       *slog.Logger
	pollInterval time.Duration
}

// Option configures Follow.
type Option func(*options)

// WithLogger sets the logger. Nil discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPollInterval sets the fallback re-read interval. Zero disables polling.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// Follow decodes every entry already in the file at path, then waits for
// appends and decodes those as they arrive, calling fn for each entry in
// order. The file does not need to exist yet.
//
// A trailing line without a line break is held until it is completed.
// Follow returns nil when ctx is cancelled, the error from fn if it fails,
// ErrMalformedRecord for an undecodable line, and ErrCorruptIndex when
// timestamps regress or the file shrinks.
func Follow[T any](ctx context.Context, path string, c timeindex.Codec[T], fn func(timeindex.Entry[T]) error, opts ...Option) error {
	o := options{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}
	path = filepath.Clean(path)
	t := &tailer[T]{
		path:   path,
		codec:  c,
		fn:     fn,
		logger: logging.Default(o.logger).With("component", "follow", "path", path),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so creation of the file is seen too.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return &timeindex.Error{Kind: timeindex.ErrStorageUnavailable, Op: "follow", Path: path, Err: err}
	}

	if err := t.read(); err != nil {
		return err
	}

	var tickCh <-chan time.Time
	if o.pollInterval > 0 {
		ticker := time.NewTicker(o.pollInterval)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := t.read(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			t.logger.Warn("fsnotify error", "error", err)

		case <-tickCh:
			if err := t.read(); err != nil {
				return err
			}
		}
	}
}

// tailer tracks how far into the file entries have been delivered.
type tailer[T any] struct {
	path   string
	codec  timeindex.Codec[T]
	fn     func(timeindex.Entry[T]) error
	logger *slog.Logger

	offset  int64  // bytes consumed, including any held partial line
	partial []byte // bytes of an unterminated trailing line
	line    int    // complete lines seen
	last    float64
	seen    bool
}

// read delivers every complete line appended since the last call.
func (t *tailer[T]) read() error {
	f, err := os.Open(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return t.unavailable(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return t.unavailable(err)
	}
	if info.Size() < t.offset {
		return &timeindex.Error{
			Kind: timeindex.ErrCorruptIndex,
			Op:   "follow",
			Path: t.path,
			Msg:  fmt.Sprintf("file shrank from %d to %d bytes", t.offset, info.Size()),
		}
	}
	if info.Size() == t.offset {
		return nil
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return t.unavailable(err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return t.unavailable(err)
	}
	t.offset += int64(len(data))

	buf := append(t.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		t.line++
		if err := t.deliver(bytes.TrimSpace(buf[:i])); err != nil {
			return err
		}
		buf = buf[i+1:]
	}
	t.partial = bytes.Clone(buf)
	return nil
}

func (t *tailer[T]) deliver(text []byte) error {
	if len(text) == 0 {
		return nil
	}
	e, err := t.codec.Decode(text)
	if err != nil {
		var terr *timeindex.Error
		if errors.As(err, &terr) {
			terr.Op = "follow"
			terr.Path = t.path
			terr.Line = t.line
		}
		return err
	}
	if t.seen && e.Timestamp < t.last {
		return &timeindex.Error{
			Kind: timeindex.ErrCorruptIndex,
			Op:   "follow",
			Path: t.path,
			Line: t.line,
			Msg:  fmt.Sprintf("timestamp %v precedes previous entry %v", e.Timestamp, t.last),
		}
	}
	t.last, t.seen = e.Timestamp, true
	t.logger.Debug("entry", "line", t.line, "timestamp", e.Timestamp)
	return t.fn(e)
}

func (t *tailer[T]) unavailable(err error) error {
	return &timeindex.Error{Kind: timeindex.ErrStorageUnavailable, Op: "follow", Path: t.path, Err: err}
}
