package timeindex

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
)

// Codec converts entries to and from single lines of the log file:
//
//	{"t":<seconds>,"v":<value>}
//
// It is a pure transform and holds no file state.
type Codec[T any] struct {
	schema Schema[T]

	// clone copies a value out of the index; nil when T holds no
	// references.
	clone func(T) T
}

// NewCodec returns a Codec that encodes values with schema.
func NewCodec[T any](schema Schema[T]) Codec[T] {
	c := Codec[T]{schema: schema}
	if cl, ok := schema.(Cloner[T]); ok {
		c.clone = cl.Clone
	} else if hasReferences(reflect.TypeFor[T]()) {
		c.clone = c.roundTrip
	}
	return c
}

// Copy returns e with a value that shares no memory with the original.
func (c Codec[T]) Copy(e Entry[T]) Entry[T] {
	if c.clone != nil {
		e.Value = c.clone(e.Value)
	}
	return e
}

// roundTrip copies v through its encoding. Stored values were encoded once
// already, so a failure here leaves v as is.
func (c Codec[T]) roundTrip(v T) T {
	data, err := c.schema.Encode(v)
	if err != nil {
		return v
	}
	out, err := c.schema.Decode(data)
	if err != nil {
		return v
	}
	return out
}

// hasReferences reports whether values of t can share memory when copied.
func hasReferences(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface,
		reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return hasReferences(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasReferences(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// Schema returns the value schema.
func (c Codec[T]) Schema() Schema[T] {
	return c.schema
}

type wireRecord struct {
	T json.RawMessage `json:"t"`
	V json.RawMessage `json:"v"`
}

// Encode renders e as one line without the trailing newline.
func (c Codec[T]) Encode(e Entry[T]) ([]byte, error) {
	if math.IsNaN(e.Timestamp) || math.IsInf(e.Timestamp, 0) {
		return nil, malformed("encode", "timestamp must be finite", nil)
	}
	if err := c.schema.Validate(e.Value); err != nil {
		return nil, malformed("encode", "value rejected by schema "+c.schema.Name(), err)
	}
	v, err := c.schema.Encode(e.Value)
	if err != nil {
		return nil, malformed("encode", "value encoding failed", err)
	}
	if len(v) == 0 || bytes.ContainsAny(v, "\r\n") {
		return nil, malformed("encode", "value encoding must be a single non-empty line", nil)
	}

	line := make([]byte, 0, len(v)+32)
	line = append(line, `{"t":`...)
	line = strconv.AppendFloat(line, e.Timestamp, 'f', -1, 64)
	line = append(line, `,"v":`...)
	line = append(line, v...)
	line = append(line, '}')
	return line, nil
}

// Decode parses one line. All failures are ErrMalformedRecord.
func (c Codec[T]) Decode(line []byte) (Entry[T], error) {
	var e Entry[T]

	var rec wireRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return e, malformed("decode", "invalid record syntax", err)
	}
	if len(rec.T) == 0 || bytes.Equal(rec.T, []byte("null")) {
		return e, malformed("decode", `missing "t" field`, nil)
	}
	if rec.T[0] == '"' {
		return e, malformed("decode", `"t" must be a number`, nil)
	}
	if err := json.Unmarshal(rec.T, &e.Timestamp); err != nil {
		return e, malformed("decode", `"t" must be a number`, err)
	}
	if len(rec.V) == 0 {
		return e, malformed("decode", `missing "v" field`, nil)
	}

	v, err := c.schema.Decode(rec.V)
	if err != nil {
		return e, malformed("decode", "value rejected by schema "+c.schema.Name(), err)
	}
	e.Value = v
	return e, nil
}
