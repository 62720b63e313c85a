package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/timeindex"
)

// Scenario is one store conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is CUE source for the value schema. Empty accepts any JSON
	// value.
	Schema string `yaml:"schema,omitempty"`

	// Definition selects the definition in Schema, "#Value" by default.
	Definition string `yaml:"definition,omitempty"`

	// Policy is the store's default lookup policy.
	Policy timeindex.Policy `yaml:"policy,omitempty"`

	// Log is written to the backing file before the store first opens.
	Log string `yaml:"log,omitempty"`

	// ExpectOpenError is the error kind the first open must fail with.
	ExpectOpenError string `yaml:"expect_open_error,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step performs exactly one operation and checks its outcome.
type Step struct {
	Append   *AppendOp  `yaml:"append,omitempty"`
	Get      *GetOp     `yaml:"get,omitempty"`
	Range    *RangeOp   `yaml:"range,omitempty"`
	Latest   bool       `yaml:"latest,omitempty"`
	Earliest bool       `yaml:"earliest,omitempty"`
	Len      *int       `yaml:"len,omitempty"`
	Reopen   bool       `yaml:"reopen,omitempty"`
	Corrupt  *CorruptOp `yaml:"corrupt,omitempty"`

	// Expect is the expected value of get, latest or earliest, compared as
	// canonical JSON.
	Expect any `yaml:"expect,omitempty"`

	// ExpectT is the expected timestamp of the matched entry.
	ExpectT *float64 `yaml:"expect_t,omitempty"`

	// ExpectTs lists the expected timestamps of a range.
	ExpectTs []float64 `yaml:"expect_ts,omitempty"`

	// ExpectError is the error kind the operation must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// AppendOp appends V at T, or at the clock's time when T is nil.
type AppendOp struct {
	T *float64 `yaml:"t,omitempty"`
	V any      `yaml:"v"`
}

// GetOp looks up T with Policy, or the store's policy when empty.
type GetOp struct {
	T      float64          `yaml:"t"`
	Policy timeindex.Policy `yaml:"policy,omitempty"`
}

// RangeOp queries the inclusive range [From, To]. Nil bounds are open.
type RangeOp struct {
	From *float64 `yaml:"from,omitempty"`
	To   *float64 `yaml:"to,omitempty"`
}

// CorruptOp replaces line Line (1-based) of the backing file with Text.
type CorruptOp struct {
	Line int    `yaml:"line"`
	Text string `yaml:"text"`
}

// op names the operation a step performs.
func (s *Step) op() string {
	var ops []string
	if s.Append != nil {
		ops = append(ops, "append")
	}
	if s.Get != nil {
		ops = append(ops, "get")
	}
	if s.Range != nil {
		ops = append(ops, "range")
	}
	if s.Latest {
		ops = append(ops, "latest")
	}
	if s.Earliest {
		ops = append(ops, "earliest")
	}
	if s.Len != nil {
		ops = append(ops, "len")
	}
	if s.Reopen {
		ops = append(ops, "reopen")
	}
	if s.Corrupt != nil {
		ops = append(ops, "corrupt")
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos like "expect_eror" fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Policy != "" && !s.Policy.Valid() {
		return fmt.Errorf("policy %q must be one of %v", s.Policy, timeindex.Policies)
	}
	if err := validateKind(s.ExpectOpenError); err != nil {
		return fmt.Errorf("expect_open_error: %w", err)
	}
	if len(s.Steps) == 0 && s.ExpectOpenError == "" {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		op := step.op()
		if op == "" {
			return fmt.Errorf("step %d: exactly one operation is required", i+1)
		}
		if err := validateKind(step.ExpectError); err != nil {
			return fmt.Errorf("step %d: expect_error: %w", i+1, err)
		}
		if step.Get != nil && step.Get.Policy != "" && !step.Get.Policy.Valid() {
			return fmt.Errorf("step %d: policy %q must be one of %v", i+1, step.Get.Policy, timeindex.Policies)
		}
		if step.Corrupt != nil && step.Corrupt.Line < 1 {
			return fmt.Errorf("step %d: corrupt line must be >= 1", i+1)
		}
		if step.ExpectTs != nil && op != "range" {
			return fmt.Errorf("step %d: expect_ts only applies to range", i+1)
		}
	}
	return nil
}

func validateKind(name string) error {
	if name == "" || slices.Contains(timeindex.KindNames(), name) {
		return nil
	}
	return fmt.Errorf("unknown error kind %q, must be one of %v", name, timeindex.KindNames())
}
