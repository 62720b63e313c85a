package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tieScenario = `name: tie
description: "A query halfway between two entries resolves to the earlier one"
policy: nearest
steps:
  - append: {t: 100, v: a}
  - append: {t: 200, v: b}
  - get: {t: 150}
    expect: a
    expect_t: 100
`

const failingScenario = `name: failing
steps:
  - append: {t: 100, v: a}
  - latest: true
    expect: b
`

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tie.yaml"), tieScenario)

	out := mustExecute(t, "test", dir)
	assert.Contains(t, out, "✓ tie")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	mustExecute(t, "test", dir, "--update")
	golden := filepath.Join(dir, "golden", "tie.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// The golden directory is not scanned for scenarios.
	mustExecute(t, "test", dir)

	writeFile(t, golden, `{"op":"open","step":0}`+"\n")
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tie.yaml"), tieScenario)
	writeFile(t, filepath.Join(dir, "failing.yaml"), failingScenario)

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeTestFailed, resp.Error.Code)

	data := resp.Data.(map[string]any)
	assert.Equal(t, 1.0, data["passed"])
	assert.Equal(t, 1.0, data["failed"])

	out = mustExecute(t, "test", dir, "--filter", "t*")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	out = mustExecute(t, "test", dir, "--filter", "nothing*")
	assert.Contains(t, out, "No scenarios found.")

	_, err = execute(t, "test", filepath.Join(dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
