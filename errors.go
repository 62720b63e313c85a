package timeindex

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package matches exactly one of
// these via errors.Is.
var (
	// ErrMalformedRecord indicates a stored or incoming record could not be
	// decoded or failed schema validation.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrNonMonotonicWrite indicates an append whose timestamp is earlier than
	// the latest stored entry.
	ErrNonMonotonicWrite = errors.New("non-monotonic write")

	// ErrCorruptIndex indicates the log on disk violates timestamp ordering.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrStorageUnavailable indicates the backing file could not be opened,
	// read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrEmpty indicates a point query against a store with no entries.
	ErrEmpty = errors.New("empty index")

	// ErrOutOfBounds indicates a point query the lookup policy cannot satisfy
	// with the recorded time range.
	ErrOutOfBounds = errors.New("out of bounds")
)

// Error carries the context of a failed store operation.
//
// Kind is one of the Err* sentinels above. Err is the underlying cause, if
// any (for example an *fs.PathError or a JSON syntax error).
type Error struct {
	Kind error
	Op   string
	Path string
	Line int // 1-based line in the log file, 0 when not applicable
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	switch {
	case e.Path != "" && e.Line > 0:
		msg += fmt.Sprintf(" (%s:%d)", e.Path, e.Line)
	case e.Path != "":
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// IsNoData reports whether err means "nothing recorded for that time":
// ErrEmpty or ErrOutOfBounds. Read-only consumers typically render these as
// "no data" instead of failing.
func IsNoData(err error) bool {
	return errors.Is(err, ErrEmpty) || errors.Is(err, ErrOutOfBounds)
}

func malformed(op, msg string, err error) *Error {
	return &Error{Kind: ErrMalformedRecord, Op: op, Msg: msg, Err: err}
}

var kindNames = []struct {
	kind error
	name string
}{
	{ErrMalformedRecord, "malformed_record"},
	{ErrNonMonotonicWrite, "non_monotonic_write"},
	{ErrCorruptIndex, "corrupt_index"},
	{ErrStorageUnavailable, "storage_unavailable"},
	{ErrEmpty, "empty"},
	{ErrOutOfBounds, "out_of_bounds"},
}

// KindName returns the snake_case name of err's kind, such as
// "out_of_bounds", or "" when err matches none of the kinds.
func KindName(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return ""
}

// KindNames lists every name KindName can return.
func KindNames() []string {
	names := make([]string, len(kindNames))
	for i, k := range kindNames {
		names[i] = k.name
	}
	return names
}
