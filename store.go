package timeindex

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/roach88/timeindex/internal/logging"
)

// Store is a time-indexed, append-only log of values of type T backed by a
// single file.
//
// Reads are served from memory and may run concurrently with each other and
// with Append. Appends are serialized internally, but the store assumes it is
// the only writer of its file: two processes appending to the same path will
// violate the ordering invariant.
type Store[T any] struct {
	path       string
	codec      Codec[T]
	policy     Policy
	cacheBound int
	now        func() time.Time
	logger     *slog.Logger

	writeMu sync.Mutex
	closed  bool
	log     *appendLog
	idx     *index[T]
}

type options struct {
	policy     Policy
	cacheBound int
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures Open.
type Option func(*options)

// WithPolicy sets the lookup policy used when none is given per call.
// The default is NearestPrev.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithCacheBound records an upper bound on entries held in memory.
// It is reserved for a bounded-memory mode; every entry is currently retained
// regardless of the bound. Zero means unbounded.
func WithCacheBound(n int) Option {
	return func(o *options) { o.cacheBound = n }
}

// WithLogger sets the logger for lifecycle events. Nil discards logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used to timestamp Append calls.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open loads the log at path into memory. A missing file is an empty store;
// the file is created on the first append.
//
// Open fails with ErrMalformedRecord if any line cannot be decoded, with
// ErrCorruptIndex if timestamps on disk decrease, and with
// ErrStorageUnavailable if the file cannot be read.
func Open[T any](path string, schema Schema[T], opts ...Option) (*Store[T], error) {
	o := options{policy: NearestPrev, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if schema == nil {
		return nil, errors.New("open: schema is required")
	}
	if path == "" {
		return nil, &Error{Kind: ErrStorageUnavailable, Op: "open", Msg: "empty path"}
	}
	if !o.policy.Valid() {
		return nil, fmt.Errorf("open: invalid policy %q: must be one of %v", o.policy, Policies)
	}
	if o.cacheBound < 0 {
		return nil, fmt.Errorf("open: cache bound must not be negative, got %d", o.cacheBound)
	}
	logger := logging.Default(o.logger).With("component", "timeindex", "path", path)

	codec := NewCodec(schema)
	l, err := openLog(path)
	if err != nil {
		logger.Error("open failed", "error", err)
		return nil, err
	}
	idx, err := loadIndex(l, codec)
	if err != nil {
		logger.Error("load failed", "error", err)
		return nil, err
	}

	s := &Store[T]{
		path:       path,
		codec:      codec,
		policy:     o.policy,
		cacheBound: o.cacheBound,
		now:        o.now,
		logger:     logger,
		log:        l,
		idx:        idx,
	}
	logger.Info("store opened", "schema", schema.Name(), "entries", idx.len(), "policy", o.policy)
	if o.cacheBound > 0 {
		logger.Debug("cache bound is reserved, retaining all entries", "cache_bound", o.cacheBound)
	}
	return s, nil
}

// Append stores v timestamped with the current time.
func (s *Store[T]) Append(v T) (Entry[T], error) {
	return s.AppendAt(v, Seconds(s.now()))
}

// AppendAt stores v at timestamp ts (seconds since the Unix epoch).
//
// The entry is durable on disk when AppendAt returns. Timestamps earlier than
// the latest entry fail with ErrNonMonotonicWrite, and values the schema
// rejects fail with ErrMalformedRecord; neither touches the file. Equal
// timestamps are allowed.
func (s *Store[T]) AppendAt(v T, ts float64) (Entry[T], error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.closed {
		return Entry[T]{}, &Error{Kind: ErrStorageUnavailable, Op: "append", Path: s.path, Msg: "store is closed"}
	}
	if last, ok := s.idx.last(); ok && ts < last.Timestamp {
		s.logger.Debug("append rejected", "timestamp", ts, "latest", last.Timestamp)
		return Entry[T]{}, &Error{
			Kind: ErrNonMonotonicWrite,
			Op:   "append",
			Path: s.path,
			Msg:  fmt.Sprintf("timestamp %v precedes latest entry %v", ts, last.Timestamp),
		}
	}

	line, err := s.codec.Encode(Entry[T]{Timestamp: ts, Value: v})
	if err != nil {
		return Entry[T]{}, s.annotate("append", err)
	}
	// Keep exactly what a reload would produce.
	e, err := s.codec.Decode(line)
	if err != nil {
		return Entry[T]{}, s.annotate("append", err)
	}

	if err := s.log.appendLine(line); err != nil {
		s.logger.Error("append failed", "error", err)
		return Entry[T]{}, err
	}
	s.idx.push(e)
	return s.codec.Copy(e), nil
}

// Get returns the value resolved for ts by the store's policy.
func (s *Store[T]) Get(ts float64) (T, error) {
	return s.GetPolicy(ts, s.policy)
}

// GetPolicy returns the value resolved for ts by policy p.
func (s *Store[T]) GetPolicy(ts float64, p Policy) (T, error) {
	e, err := s.GetEntryPolicy(ts, p)
	return e.Value, err
}

// GetEntry is like Get but returns the matched entry, whose timestamp may
// differ from ts.
func (s *Store[T]) GetEntry(ts float64) (Entry[T], error) {
	return s.GetEntryPolicy(ts, s.policy)
}

// GetEntryPolicy is like GetPolicy but returns the matched entry.
//
// It fails with ErrEmpty when the store has no entries and with
// ErrOutOfBounds when p cannot be satisfied.
func (s *Store[T]) GetEntryPolicy(ts float64, p Policy) (Entry[T], error) {
	e, err := s.idx.find(ts, p)
	if err != nil {
		return Entry[T]{}, s.annotate("get", err)
	}
	return s.codec.Copy(e), nil
}

// GetOr returns the value resolved for ts by the store's policy, or def when
// nothing is recorded for that time.
func (s *Store[T]) GetOr(ts float64, def T) T {
	v, err := s.Get(ts)
	if err != nil {
		return def
	}
	return v
}

// Latest returns the most recent entry. ok is false when the store is empty.
func (s *Store[T]) Latest() (e Entry[T], ok bool) {
	if e, ok = s.idx.last(); !ok {
		return e, false
	}
	return s.codec.Copy(e), true
}

// Earliest returns the oldest entry. ok is false when the store is empty.
func (s *Store[T]) Earliest() (e Entry[T], ok bool) {
	if e, ok = s.idx.first(); !ok {
		return e, false
	}
	return s.codec.Copy(e), true
}

// Range yields the entries with start <= timestamp <= end in ascending order.
// Infinite bounds are allowed. The sequence reflects the store at the time
// Range was called. Every yielded entry is a copy.
func (s *Store[T]) Range(start, end float64) iter.Seq[Entry[T]] {
	entries := s.idx.between(start, end)
	return func(yield func(Entry[T]) bool) {
		for _, e := range entries {
			if !yield(s.codec.Copy(e)) {
				return
			}
		}
	}
}

// All yields every entry in ascending order.
func (s *Store[T]) All() iter.Seq[Entry[T]] {
	return s.Range(math.Inf(-1), math.Inf(1))
}

// Len returns the number of entries.
func (s *Store[T]) Len() int {
	return s.idx.len()
}

// Path returns the backing file path.
func (s *Store[T]) Path() string {
	return s.path
}

// Schema returns the value schema.
func (s *Store[T]) Schema() Schema[T] {
	return s.codec.Schema()
}

// Policy returns the default lookup policy.
func (s *Store[T]) Policy() Policy {
	return s.policy
}

// CacheBound returns the configured cache bound, 0 when unbounded.
func (s *Store[T]) CacheBound() int {
	return s.cacheBound
}

// Close releases the file handle. Reads keep working from memory; appends
// fail with ErrStorageUnavailable.
func (s *Store[T]) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.log.close()
}

func (s *Store[T]) String() string {
	return fmt.Sprintf("TimeIndex(%q, %s, policy=%s, entries=%d)",
		s.path, s.codec.Schema().Name(), s.policy, s.Len())
}

func (s *Store[T]) annotate(op string, err error) error {
	var terr *Error
	if errors.As(err, &terr) {
		terr.Op = op
		terr.Path = s.path
	}
	return err
}
