package timeindex

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
)

// Schema is the capability a value type must be paired with to back a Store:
// a canonical text encoding, its inverse, and validation.
//
// Encode and Decode must round-trip: Decode(Encode(v)) yields a value equal to
// v. Encode output must be a single JSON value without line breaks.
type Schema[T any] interface {
	// Name identifies the schema in diagnostics.
	Name() string
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
	Validate(v T) error
}

// Cloner is implemented by schemas that can deep-copy their values. Stores
// hand out clones so callers never share maps, slices or pointers with
// stored entries. Schemas without it are copied through Encode and Decode
// when T can hold references.
type Cloner[T any] interface {
	Clone(v T) T
}

// Validator is implemented by value types that check their own invariants.
// JSON schemas call it after decoding and before encoding.
type Validator interface {
	Validate() error
}

// JSONSchema stores Go values using encoding/json.
type JSONSchema[T any] struct {
	// AllowUnknownFields disables strict decoding of object fields.
	AllowUnknownFields bool
}

// JSON returns a strict JSONSchema for T.
func JSON[T any]() JSONSchema[T] {
	return JSONSchema[T]{}
}

// Name returns the Go type name of T.
func (JSONSchema[T]) Name() string {
	return reflect.TypeFor[T]().String()
}

// Encode marshals v without HTML escaping.
func (JSONSchema[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Encoder adds a trailing newline
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode unmarshals exactly one JSON value into a T and validates it.
func (s JSONSchema[T]) Decode(data []byte) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	if !s.AllowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return v, fmt.Errorf("unexpected data after value")
	}
	if err := s.Validate(v); err != nil {
		return v, err
	}
	return v, nil
}

// Validate calls the value's Validate method when T or *T implements
// Validator.
func (JSONSchema[T]) Validate(v T) error {
	if val, ok := any(v).(Validator); ok {
		return val.Validate()
	}
	if val, ok := any(&v).(Validator); ok {
		return val.Validate()
	}
	return nil
}
