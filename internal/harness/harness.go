package harness

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/roach88/timeindex"
	"github.com/roach88/timeindex/internal/canonical"
	"github.com/roach88/timeindex/internal/cueschema"
	"github.com/roach88/timeindex/internal/logging"
	"github.com/roach88/timeindex/internal/testutil"
)

// anySchema accepts every JSON value.
const anySchema = "#Value: _"

// scenarioEpoch is the first time the deterministic clock returns.
var scenarioEpoch = time.Date(2024, 12, 16, 0, 0, 0, 0, time.UTC)

// Harness executes the steps of one scenario against one store.
type Harness struct {
	path   string
	schema *cueschema.Schema
	opts   []timeindex.Option
	logger *slog.Logger

	store *timeindex.Store[any]
}

// Option configures Run.
type Option func(*Harness)

// WithLogger passes l to the store under test. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario against a fresh store in a temporary directory and
// returns the result. Failed expectations are reported in the result; the
// error is reserved for scenarios that cannot be set up.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "timeindex-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "log.jsonl")
	if scenario.Log != "" {
		if err := os.WriteFile(path, []byte(scenario.Log), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write initial log: %w", err)
		}
	}

	src := scenario.Schema
	if src == "" {
		src = anySchema
	}
	schema, err := cueschema.Compile(scenario.Name+".cue", []byte(src), scenario.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	policy := scenario.Policy
	if policy == "" {
		policy = timeindex.NearestPrev
	}
	clock := testutil.NewClock(scenarioEpoch, time.Second)

	h := &Harness{path: path, schema: schema}
	for _, opt := range opts {
		opt(h)
	}
	h.opts = []timeindex.Option{
		timeindex.WithPolicy(policy),
		timeindex.WithClock(clock.Now),
		timeindex.WithLogger(logging.Default(h.logger)),
	}
	defer h.close()

	result := NewResult()
	ev := TraceEvent{Step: 0, Op: "open"}
	err = h.open()
	if err == nil {
		n := h.store.Len()
		ev.Len = &n
	}
	h.checkError(result, &ev, scenario.ExpectOpenError, err)
	result.addTrace(ev)

	for i := range scenario.Steps {
		h.execute(result, i+1, &scenario.Steps[i])
	}
	return result, nil
}

func (h *Harness) open() error {
	s, err := timeindex.Open[any](h.path, h.schema, h.opts...)
	if err != nil {
		return err
	}
	h.store = s
	return nil
}

func (h *Harness) close() {
	if h.store != nil {
		_ = h.store.Close()
		h.store = nil
	}
}

func (h *Harness) execute(result *Result, n int, step *Step) {
	op := step.op()
	ev := TraceEvent{Step: n, Op: op}
	defer func() { result.addTrace(ev) }()

	if h.store == nil && op != "reopen" && op != "corrupt" {
		ev.Error = "not_open"
		result.AddError(fmt.Sprintf("step %d (%s): store is not open", n, op))
		return
	}

	var err error
	switch op {
	case "append":
		ev.T = step.Append.T
		var e timeindex.Entry[any]
		if step.Append.T != nil {
			e, err = h.store.AppendAt(step.Append.V, *step.Append.T)
		} else {
			e, err = h.store.Append(step.Append.V)
		}
		if err == nil {
			ev.Entry = &TraceEntry{T: e.Timestamp, Value: e.Value}
		}

	case "get":
		p := step.Get.Policy
		if p == "" {
			p = h.store.Policy()
		}
		t := step.Get.T
		ev.T = &t
		ev.Policy = p.String()
		var e timeindex.Entry[any]
		if e, err = h.store.GetEntryPolicy(t, p); err == nil {
			ev.Entry = &TraceEntry{T: e.Timestamp, Value: e.Value}
		}

	case "latest", "earliest":
		get := h.store.Latest
		if op == "earliest" {
			get = h.store.Earliest
		}
		if e, ok := get(); ok {
			ev.Entry = &TraceEntry{T: e.Timestamp, Value: e.Value}
		}

	case "range":
		from, to := math.Inf(-1), math.Inf(1)
		if step.Range.From != nil {
			from = *step.Range.From
		}
		if step.Range.To != nil {
			to = *step.Range.To
		}
		ev.From, ev.To = &from, &to
		ev.Ts = []float64{}
		for e := range h.store.Range(from, to) {
			ev.Ts = append(ev.Ts, e.Timestamp)
		}

	case "len":
		l := h.store.Len()
		ev.Len = &l
		if l != *step.Len {
			result.AddError(fmt.Sprintf("step %d (len): expected %d, got %d", n, *step.Len, l))
		}

	case "reopen":
		h.close()
		if err = h.open(); err == nil {
			l := h.store.Len()
			ev.Len = &l
		}

	case "corrupt":
		ev.Line = step.Corrupt.Line
		err = replaceLine(h.path, step.Corrupt.Line, step.Corrupt.Text)
	}

	h.checkError(result, &ev, step.ExpectError, err)
	if err == nil {
		h.checkExpectations(result, n, op, step, &ev)
	}
}

// checkError records err on the event and compares its kind with want.
func (h *Harness) checkError(result *Result, ev *TraceEvent, want string, err error) {
	if err != nil {
		ev.Error = timeindex.KindName(err)
		if ev.Error == "" {
			ev.Error = "error"
		}
	}
	prefix := fmt.Sprintf("step %d (%s)", ev.Step, ev.Op)
	switch {
	case err == nil && want != "":
		result.AddError(fmt.Sprintf("%s: expected error %s, got success", prefix, want))
	case err != nil && want == "":
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, err))
	case err != nil && ev.Error != want:
		result.AddError(fmt.Sprintf("%s: expected error %s, got %v", prefix, want, err))
	}
}

func (h *Harness) checkExpectations(result *Result, n int, op string, step *Step, ev *TraceEvent) {
	prefix := fmt.Sprintf("step %d (%s)", n, op)

	if (step.Expect != nil || step.ExpectT != nil) && ev.Entry == nil {
		result.AddError(fmt.Sprintf("%s: expected an entry, store is empty", prefix))
		return
	}
	if step.Expect != nil {
		want, err := canonical.Marshal(step.Expect)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: invalid expect: %v", prefix, err))
			return
		}
		got, err := canonical.Marshal(ev.Entry.Value)
		if err != nil {
			result.AddError(fmt.Sprintf("%s: value not representable: %v", prefix, err))
			return
		}
		if !bytes.Equal(want, got) {
			result.AddError(fmt.Sprintf("%s: expected value %s, got %s", prefix, want, got))
		}
	}
	if step.ExpectT != nil && ev.Entry.T != *step.ExpectT {
		result.AddError(fmt.Sprintf("%s: expected t=%v, got t=%v", prefix, *step.ExpectT, ev.Entry.T))
	}
	if step.ExpectTs != nil && !slices.Equal(step.ExpectTs, ev.Ts) {
		result.AddError(fmt.Sprintf("%s: expected timestamps %v, got %v", prefix, step.ExpectTs, ev.Ts))
	}
}

// replaceLine overwrites one line of the file at path, keeping the others.
func replaceLine(path string, line int, text string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	lines := bytes.SplitAfter(data, []byte("\n"))
	if line > len(lines) || len(lines[line-1]) == 0 {
		return fmt.Errorf("corrupt: file has no line %d", line)
	}
	old := lines[line-1]
	repl := []byte(text)
	if bytes.HasSuffix(old, []byte("\n")) {
		repl = append(repl, '\n')
	}
	lines[line-1] = repl
	return os.WriteFile(path, bytes.Join(lines, nil), 0o644)
}
