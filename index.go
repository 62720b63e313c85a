package timeindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

// index is the in-memory, timestamp-ordered mirror of the append log.
//
// Entries are only ever appended, so a slice header taken under the read lock
// stays valid after the lock is released: later pushes never modify elements
// below the observed length.
type index[T any] struct {
	mu      sync.RWMutex
	entries []Entry[T]
}

// loadIndex decodes every line of l in order. Decoding failures are
// ErrMalformedRecord and timestamp regressions are ErrCorruptIndex; both
// carry the offending line number.
func loadIndex[T any](l *appendLog, c Codec[T]) (*index[T], error) {
	x := &index[T]{}
	for line, err := range l.lines() {
		if err != nil {
			return nil, err
		}
		e, err := c.Decode(line.Text)
		if err != nil {
			var terr *Error
			if errors.As(err, &terr) {
				terr.Op = "load"
				terr.Path = l.path
				terr.Line = line.Num
			}
			return nil, err
		}
		if n := len(x.entries); n > 0 && e.Timestamp < x.entries[n-1].Timestamp {
			return nil, &Error{
				Kind: ErrCorruptIndex,
				Op:   "load",
				Path: l.path,
				Line: line.Num,
				Msg:  fmt.Sprintf("timestamp %v precedes previous entry %v", e.Timestamp, x.entries[n-1].Timestamp),
			}
		}
		x.entries = append(x.entries, e)
	}
	return x, nil
}

// snapshot returns the current entries. The result is capped so appending to
// it can never write into the index's backing array.
func (x *index[T]) snapshot() []Entry[T] {
	x.mu.RLock()
	s := x.entries
	x.mu.RUnlock()
	return s[:len(s):len(s)]
}

func (x *index[T]) push(e Entry[T]) {
	x.mu.Lock()
	x.entries = append(x.entries, e)
	x.mu.Unlock()
}

func (x *index[T]) len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

func (x *index[T]) first() (Entry[T], bool) {
	s := x.snapshot()
	if len(s) == 0 {
		return Entry[T]{}, false
	}
	return s[0], true
}

func (x *index[T]) last() (Entry[T], bool) {
	s := x.snapshot()
	if len(s) == 0 {
		return Entry[T]{}, false
	}
	return s[len(s)-1], true
}

func (x *index[T]) find(q float64, p Policy) (Entry[T], error) {
	s := x.snapshot()
	i, err := lookup(s, q, p)
	if err != nil {
		return Entry[T]{}, err
	}
	return s[i], nil
}

// between returns the entries with start <= Timestamp <= end.
func (x *index[T]) between(start, end float64) []Entry[T] {
	s := x.snapshot()
	lo := sort.Search(len(s), func(i int) bool { return s[i].Timestamp >= start })
	hi := sort.Search(len(s), func(i int) bool { return s[i].Timestamp > end })
	if lo >= hi {
		return nil
	}
	return s[lo:hi]
}

// lookup resolves q against the sorted entries and returns the position of
// the matching entry.
//
// prev is the rightmost entry with Timestamp <= q and next the leftmost with
// Timestamp >= q. Nearest picks the closer of the two and prefers prev on a
// tie.
func lookup[T any](entries []Entry[T], q float64, p Policy) (int, error) {
	n := len(entries)
	if n == 0 {
		return -1, &Error{Kind: ErrEmpty, Op: "get", Msg: "no entries recorded"}
	}
	if !p.Valid() {
		return -1, fmt.Errorf("get: unknown lookup policy %q", p)
	}
	if math.IsNaN(q) {
		return -1, &Error{Kind: ErrOutOfBounds, Op: "get", Msg: "query timestamp is NaN"}
	}

	prev := sort.Search(n, func(i int) bool { return entries[i].Timestamp > q }) - 1
	next := sort.Search(n, func(i int) bool { return entries[i].Timestamp >= q })

	switch p {
	case NearestPrev:
		if prev < 0 {
			return -1, &Error{Kind: ErrOutOfBounds, Op: "get", Msg: fmt.Sprintf("no entries at or before %v", q)}
		}
		return prev, nil
	case NearestNext:
		if next >= n {
			return -1, &Error{Kind: ErrOutOfBounds, Op: "get", Msg: fmt.Sprintf("no entries at or after %v", q)}
		}
		return next, nil
	}

	switch {
	case prev < 0:
		return next, nil
	case next >= n:
		return prev, nil
	case q-entries[prev].Timestamp <= entries[next].Timestamp-q:
		return prev, nil
	default:
		return next, nil
	}
}
