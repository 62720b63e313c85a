package timeindex

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// sample is the value type used across store tests.
type sample struct {
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
}

// reading rejects humidity outside [0, 1].
type reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

func (r reading) Validate() error {
	if r.Humidity < 0 || r.Humidity > 1 {
		return errors.New("humidity must be within [0, 1]")
	}
	return nil
}

// tempLogPath returns a path to a not-yet-existing log file.
func tempLogPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.jsonl")
}

// openTestStore opens a sample store at a fresh path.
func openTestStore(t *testing.T, opts ...Option) *Store[sample] {
	t.Helper()
	s, err := Open(tempLogPath(t), JSON[sample](), opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// writeLog writes raw content to a fresh log path.
func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := tempLogPath(t)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	return path
}

// mustAppend appends v at ts and fails the test on error.
func mustAppend(t *testing.T, s *Store[sample], value float64, ts float64) Entry[sample] {
	t.Helper()
	e, err := s.AppendAt(sample{Value: value}, ts)
	if err != nil {
		t.Fatalf("AppendAt(%v) failed: %v", ts, err)
	}
	return e
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	return string(data)
}
