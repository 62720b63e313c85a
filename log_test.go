package timeindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectLines(t *testing.T, l *appendLog) []logLine {
	t.Helper()
	var out []logLine
	for line, err := range l.lines() {
		require.NoError(t, err)
		out = append(out, line)
	}
	return out
}

func TestOpenLog_MissingFileIsEmpty(t *testing.T) {
	path := tempLogPath(t)

	l, err := openLog(path)
	require.NoError(t, err)
	assert.Empty(t, collectLines(t, l))

	// Opening must not create the file.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestOpenLog_Directory(t *testing.T) {
	_, err := openLog(t.TempDir())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestAppendLine_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "log.jsonl")

	l, err := openLog(path)
	require.NoError(t, err)
	require.NoError(t, l.appendLine([]byte(`{"t":1,"v":1}`)))
	require.NoError(t, l.appendLine([]byte(`{"t":2,"v":2}`)))
	require.NoError(t, l.close())

	assert.Equal(t, "{\"t\":1,\"v\":1}\n{\"t\":2,\"v\":2}\n", readFile(t, path))
}

func TestLines_NumbersAndBlankLines(t *testing.T) {
	path := writeLog(t, "a\n\n   \nb\nc\n")

	l, err := openLog(path)
	require.NoError(t, err)
	lines := collectLines(t, l)

	require.Len(t, lines, 3)
	assert.Equal(t, logLine{Num: 1, Text: []byte("a")}, lines[0])
	assert.Equal(t, logLine{Num: 4, Text: []byte("b")}, lines[1])
	assert.Equal(t, logLine{Num: 5, Text: []byte("c")}, lines[2])
}

func TestLines_FinalLineWithoutNewline(t *testing.T) {
	path := writeLog(t, "a\nb")

	l, err := openLog(path)
	require.NoError(t, err)

	var (
		got    []string
		gotErr error
	)
	for line, err := range l.lines() {
		if err != nil {
			gotErr = err
			break
		}
		got = append(got, string(line.Text))
	}

	assert.Equal(t, []string{"a"}, got)
	require.ErrorIs(t, gotErr, ErrMalformedRecord)
	var terr *Error
	require.ErrorAs(t, gotErr, &terr)
	assert.Equal(t, 2, terr.Line)
	assert.Equal(t, path, terr.Path)
}

func TestLines_TrailingWhitespaceWithoutNewline(t *testing.T) {
	path := writeLog(t, "a\n  ")

	l, err := openLog(path)
	require.NoError(t, err)
	lines := collectLines(t, l)

	require.Len(t, lines, 1)
	assert.Equal(t, "a", string(lines[0].Text))
}

func TestLines_StopEarly(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	l, err := openLog(path)
	require.NoError(t, err)

	var got []string
	for line, err := range l.lines() {
		require.NoError(t, err)
		got = append(got, string(line.Text))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestLines_Unreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	path := writeLog(t, "a\n")
	require.NoError(t, os.Chmod(path, 0o000))
	t.Cleanup(func() { os.Chmod(path, 0o644) })

	l, err := openLog(path)
	require.NoError(t, err)

	var gotErr error
	for _, err := range l.lines() {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, ErrStorageUnavailable)
}

func TestAppendLine_ReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	l, err := openLog(filepath.Join(dir, "log.jsonl"))
	require.NoError(t, err)

	err = l.appendLine([]byte("a"))
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestClose_Idempotent(t *testing.T) {
	l, err := openLog(tempLogPath(t))
	require.NoError(t, err)

	assert.NoError(t, l.close())
	require.NoError(t, l.appendLine([]byte("a")))
	assert.NoError(t, l.close())
	assert.NoError(t, l.close())
}
