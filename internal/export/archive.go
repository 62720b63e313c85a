package export

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/roach88/timeindex"
)

// maxArchiveWindow bounds decoder memory when reading archives.
const maxArchiveWindow = 64 << 20

// WriteArchive writes a snapshot of s to w as zstd-compressed log lines and
// returns the number of entries written. The decompressed stream is a valid
// log file for the same schema.
func WriteArchive[T any](w io.Writer, s *timeindex.Store[T]) (int, error) {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}

	codec := timeindex.NewCodec(s.Schema())
	n := 0
	for e := range s.All() {
		line, err := codec.Encode(e)
		if err != nil {
			enc.Close()
			return n, fmt.Errorf("archive entry %d: %w", n, err)
		}
		line = append(line, '\n')
		if _, err := enc.Write(line); err != nil {
			enc.Close()
			return n, fmt.Errorf("archive: write: %w", err)
		}
		n++
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("archive: flush: %w", err)
	}
	return n, nil
}

// ReadArchive decompresses an archive from r and decodes every line with c,
// calling fn for each entry in order. Decoding stops at the first error.
func ReadArchive[T any](r io.Reader, c timeindex.Codec[T], fn func(timeindex.Entry[T]) error) error {
	dec, err := zstd.NewReader(r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxWindow(maxArchiveWindow),
	)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), maxArchiveWindow)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		e, err := c.Decode(text)
		if err != nil {
			return fmt.Errorf("archive line %d: %w", line, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("archive: read: %w", err)
	}
	return nil
}
