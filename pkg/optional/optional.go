// Package optional models patch fields that distinguish "absent" from "explicitly null".
package optional

import (
	"bytes"
	"encoding/json"
)

// Value is a tri-state field: absent, present with null, or present with a value.
// The zero Value is absent.
type Value[T any] struct {
	Present bool
	Null    bool
	Val     T
}

// Of returns a present, non-null value
func Of[T any](v T) Value[T] {
	return Value[T]{Present: true, Val: v}
}

// Null returns a present value explicitly set to null
func Null[T any]() Value[T] {
	return Value[T]{Present: true, Null: true}
}

// Get returns the value and whether it is present and non-null
func (v Value[T]) Get() (T, bool) {
	return v.Val, v.Present && !v.Null
}

// IsNull reports whether the field was explicitly set to null
func (v Value[T]) IsNull() bool {
	return v.Present && v.Null
}

func (v *Value[T]) UnmarshalJSON(data []byte) error {
	v.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		v.Null = true
		var zero T
		v.Val = zero
		return nil
	}
	v.Null = false
	return json.Unmarshal(data, &v.Val)
}

func (v Value[T]) MarshalJSON() ([]byte, error) {
	if !v.Present || v.Null {
		return []byte("null"), nil
	}
	return json.Marshal(v.Val)
}
