package harness

import "math"

// TraceEvent records one executed operation and its outcome.
type TraceEvent struct {
	Step   int         `json:"step"` // 0 for the initial open
	Op     string      `json:"op"`
	T      *float64    `json:"t,omitempty"`
	Policy string      `json:"policy,omitempty"`
	From   *float64    `json:"from,omitempty"`
	To     *float64    `json:"to,omitempty"`
	Line   int         `json:"line,omitempty"`
	Entry  *TraceEntry `json:"entry,omitempty"`
	Ts     []float64   `json:"ts,omitempty"`
	Len    *int        `json:"len,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// TraceEntry is an entry returned by the store.
type TraceEntry struct {
	T     float64 `json:"t"`
	Value any     `json:"v"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace contains every operation in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// toCanonicalMap converts the event for canonical JSON serialization.
func (ev TraceEvent) toCanonicalMap() map[string]any {
	m := map[string]any{
		"step": ev.Step,
		"op":   ev.Op,
	}
	if ev.T != nil {
		m["t"] = *ev.T
	}
	if ev.Policy != "" {
		m["policy"] = ev.Policy
	}
	if ev.From != nil && !math.IsInf(*ev.From, 0) {
		m["from"] = *ev.From
	}
	if ev.To != nil && !math.IsInf(*ev.To, 0) {
		m["to"] = *ev.To
	}
	if ev.Line > 0 {
		m["line"] = ev.Line
	}
	if ev.Entry != nil {
		m["entry"] = map[string]any{"t": ev.Entry.T, "v": ev.Entry.Value}
	}
	if ev.Ts != nil {
		ts := make([]any, len(ev.Ts))
		for i, t := range ev.Ts {
			ts[i] = t
		}
		m["ts"] = ts
	}
	if ev.Len != nil {
		m["len"] = *ev.Len
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	return m
}
