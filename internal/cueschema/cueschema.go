// Package cueschema validates dynamic JSON values against a CUE definition.
//
// A Schema satisfies timeindex.Schema[any], so a store of untyped values can
// be opened without a Go type:
//
//	s, err := cueschema.Compile("reading.cue", src, "#Reading")
//	store, err := timeindex.Open[any](path, s)
//
// Values are encoded with internal/canonical, so equal values always produce
// identical lines. Decoded numbers are json.Number to keep integer precision.
package cueschema

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/timeindex/internal/canonical"
)

// DefaultDefinition is the definition looked up when none is given.
const DefaultDefinition = "#Value"

// SchemaError reports a CUE compile or validation failure with the source
// position of the first error when CUE provides one.
type SchemaError struct {
	Op      string // "compile" or "validate"
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s:%d:%d: %s",
			e.Op, e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Schema is a compiled CUE definition.
//
// cue.Context is not safe for concurrent use, so all evaluation is
// serialized on mu.
type Schema struct {
	name string

	mu  sync.Mutex
	ctx *cue.Context
	def cue.Value
}

// Load reads and compiles the CUE file at path.
func Load(path, definition string) (*Schema, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Compile(path, src, definition)
}

// Compile compiles src and selects definition from it. An empty definition
// means DefaultDefinition. filename is used in error positions only.
func Compile(filename string, src []byte, definition string) (*Schema, error) {
	if definition == "" {
		definition = DefaultDefinition
	}
	ctx := cuecontext.New()
	root := ctx.CompileBytes(src, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, cueError("compile", err)
	}

	path := cue.ParsePath(definition)
	if err := path.Err(); err != nil {
		return nil, &SchemaError{Op: "compile", Message: fmt.Sprintf("invalid definition %q: %v", definition, err)}
	}
	def := root.LookupPath(path)
	if !def.Exists() {
		return nil, &SchemaError{
			Op:      "compile",
			Message: fmt.Sprintf("definition %s not found", definition),
			Pos:     root.Pos(),
		}
	}
	if err := def.Err(); err != nil {
		return nil, cueError("compile", err)
	}

	return &Schema{
		name: definition,
		ctx:  ctx,
		def:  def,
	}, nil
}

// Name returns the definition name, e.g. "#Value".
func (s *Schema) Name() string {
	return s.name
}

// Encode renders v as canonical JSON.
func (s *Schema) Encode(v any) ([]byte, error) {
	return canonical.Marshal(v)
}

// Decode parses one JSON value and validates it against the definition.
func (s *Schema) Decode(data []byte) (any, error) {
	v, err := canonical.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if err := s.validateJSON(data); err != nil {
		return nil, err
	}
	return v, nil
}

// Clone deep-copies a decoded value.
func (s *Schema) Clone(v any) any {
	return canonical.Clone(v)
}

// Validate checks that v is concrete and an instance of the definition.
func (s *Schema) Validate(v any) error {
	data, err := canonical.Marshal(v)
	if err != nil {
		return err
	}
	return s.validateJSON(data)
}

func (s *Schema) validateJSON(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// JSON is valid CUE.
	x := s.ctx.CompileBytes(data)
	if err := x.Err(); err != nil {
		return cueError("validate", err)
	}
	if err := s.def.Unify(x).Validate(cue.Concrete(true)); err != nil {
		return cueError("validate", err)
	}
	return nil
}

// cueError converts a CUE error list into a SchemaError carrying the first
// error and its position.
func cueError(op string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Op: op, Message: err.Error()}
	}
	first := errs[0]
	se := &SchemaError{Op: op, Message: first.Error()}
	if pos := errors.Positions(first); len(pos) > 0 {
		se.Pos = pos[0]
	}
	return se
}
