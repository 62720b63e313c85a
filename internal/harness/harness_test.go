package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenariosGolden(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, scenario))
		})
	}
}

func TestRunReportsFailedExpectations(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: wrong_expectations
steps:
  - append: {t: 1, v: "a"}
  - get: {t: 1}
    expect: "b"
  - get: {t: 1}
    expect_t: 2
  - get: {t: 0}
  - get: {t: 1}
    expect_error: out_of_bounds
  - range: {from: 0, to: 5}
    expect_ts: [1, 2]
  - len: 5
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], `expected value "b", got "a"`)
	assert.Contains(t, result.Errors[1], "expected t=2, got t=1")
	assert.Contains(t, result.Errors[2], "step 4 (get): unexpected error")
	assert.Contains(t, result.Errors[3], "expected error out_of_bounds, got success")
	assert.Contains(t, result.Errors[4], "expected timestamps [1 2], got [1]")
	assert.Contains(t, result.Errors[5], "expected 5, got 1")
	assert.Len(t, result.Trace, 8)
}

func TestRunStepsAfterFailedOpen(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: failed_reopen
steps:
  - append: {t: 1, v: 1}
  - corrupt: {line: 1, text: "garbage"}
  - reopen: true
    expect_error: malformed_record
  - len: 1
  - corrupt: {line: 1, text: '{"t":1,"v":1}'}
  - reopen: true
  - len: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 4 (len): store is not open")
	assert.Equal(t, "not_open", result.Trace[4].Error)
}

func TestRunExpectEntryOnEmptyStore(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: empty_latest
steps:
  - latest: true
  - latest: true
    expect_t: 1
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "step 2 (latest): expected an entry")
}

func TestRunInvalidSchema(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad_schema
schema: "#Value: {"
steps:
  - len: 0
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile schema")
}

func TestParseScenarioErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"unknown field", "name: x\nsteps:\n  - len: 0\n    expect_eror: empty\n", "field expect_eror not found"},
		{"missing name", "steps:\n  - len: 0\n", "name is required"},
		{"no steps", "name: x\n", "steps list is required"},
		{"two operations", "name: x\nsteps:\n  - len: 0\n    latest: true\n", "exactly one operation"},
		{"no operation", "name: x\nsteps:\n  - expect_t: 1\n", "exactly one operation"},
		{"bad policy", "name: x\npolicy: closest\nsteps:\n  - len: 0\n", `policy "closest"`},
		{"bad step policy", "name: x\nsteps:\n  - get: {t: 1, policy: up}\n", `policy "up"`},
		{"bad error kind", "name: x\nsteps:\n  - len: 0\n    expect_error: boom\n", `unknown error kind "boom"`},
		{"bad open error", "name: x\nexpect_open_error: boom\n", "expect_open_error"},
		{"bad corrupt line", "name: x\nsteps:\n  - corrupt: {line: 0, text: x}\n", "corrupt line"},
		{"expect_ts on get", "name: x\nsteps:\n  - get: {t: 1}\n    expect_ts: [1]\n", "expect_ts only applies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenarioFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from_file\nsteps:\n  - len: 0\n"), 0o644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", scenario.Name)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, "len", scenario.Steps[0].op())
}

func TestMarshalTrace(t *testing.T) {
	one, from := 1.0, 0.5
	n := 2
	trace := []TraceEvent{
		{Step: 0, Op: "open", Len: &n},
		{Step: 1, Op: "get", T: &one, Policy: "nearest", Entry: &TraceEntry{T: 1, Value: map[string]any{"b": 1, "a": nil}}},
		{Step: 2, Op: "range", From: &from, Ts: []float64{}},
	}

	got, err := MarshalTrace(trace)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		`{"len":2,"op":"open","step":0}`,
		`{"entry":{"t":1,"v":{"a":null,"b":1}},"op":"get","policy":"nearest","step":1,"t":1}`,
		`{"from":0.5,"op":"range","step":2,"ts":[]}`,
	}, "\n")+"\n", string(got))
}
