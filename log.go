package timeindex

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// logLine is one non-blank line of the log file.
type logLine struct {
	Num  int // 1-based
	Text []byte
}

// appendLog is the durable, append-only file behind a Store.
//
// The file is created lazily on the first append. Every append is a single
// write followed by fsync; a failed write is truncated away so the file never
// keeps a partial record written by this process.
type appendLog struct {
	path string
	f    *os.File

	// size is the byte length of the file as last read or written.
	size int64
}

func openLog(path string) (*appendLog, error) {
	l := &appendLog{path: path}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return l, nil
	case err != nil:
		return nil, l.unavailable("open", err)
	case info.IsDir():
		return nil, &Error{Kind: ErrStorageUnavailable, Op: "open", Path: path, Msg: "path is a directory"}
	}
	l.size = info.Size()
	return l, nil
}

// lines yields every non-blank line in file order. A missing file yields
// nothing. Read failures are yielded once as ErrStorageUnavailable, after
// which iteration stops. Every record ends in a line break, so a non-blank
// final line without one is a partial write and is yielded as
// ErrMalformedRecord.
func (l *appendLog) lines() iter.Seq2[logLine, error] {
	return func(yield func(logLine, error) bool) {
		f, err := os.Open(l.path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(logLine{}, l.unavailable("read", err))
			return
		}
		defer f.Close()

		r := bufio.NewReaderSize(f, 64*1024)
		var (
			num int
			off int64
		)
		for {
			b, err := r.ReadBytes('\n')
			if len(b) > 0 {
				num++
				off += int64(len(b))
				text := bytes.TrimSpace(b)
				if b[len(b)-1] != '\n' && len(text) > 0 {
					yield(logLine{}, &Error{
						Kind: ErrMalformedRecord,
						Op:   "load",
						Path: l.path,
						Line: num,
						Msg:  "partial record: final line has no line break",
					})
					return
				}
				if len(text) > 0 {
					if !yield(logLine{Num: num, Text: text}, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				l.size = off
				return
			}
			if err != nil {
				yield(logLine{}, l.unavailable("read", err))
				return
			}
		}
	}
}

// appendLine durably appends line followed by a line break.
func (l *appendLog) appendLine(line []byte) error {
	if l.f == nil {
		if err := l.create(); err != nil {
			return err
		}
	}

	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	n, err := l.f.Write(buf)
	if err == nil && n != len(buf) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = l.f.Sync()
	}
	if err != nil {
		// Best effort: drop whatever part of the record reached the file.
		_ = l.f.Truncate(l.size)
		return l.unavailable("append", err)
	}

	l.size += int64(len(buf))
	return nil
}

// create opens the file for appending, creating it and its parent
// directories when missing.
func (l *appendLog) create() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return l.unavailable("create", err)
	}

	_, statErr := os.Stat(l.path)
	created := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return l.unavailable("create", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return l.unavailable("create", err)
	}
	l.size = info.Size()

	if created {
		// Make the new directory entry durable along with the first record.
		syncDir(dir)
	}
	l.f = f
	return nil
}

func (l *appendLog) close() error {
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	if err != nil {
		return l.unavailable("close", err)
	}
	return nil
}

func (l *appendLog) unavailable(op string, err error) *Error {
	return &Error{Kind: ErrStorageUnavailable, Op: op, Path: l.path, Err: err}
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	// Not every platform supports fsync on a directory.
	_ = d.Sync()
}
