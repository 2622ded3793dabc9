// Package patch models partial updates where a field may be absent, present,
// or explicitly null.
package patch

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes "not sent" from "sent as null" from "sent with a
// value" when decoding JSON request bodies.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// Present reports whether a non-null value was supplied.
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// Apply overwrites *dst when a non-null value is present.
func Apply[T any](dst *T, o Optional[T]) {
	if o.Present() {
		*dst = o.Value
	}
}

// ApplyPtr sets *dst to a copy of the value, or to nil on an explicit null.
func ApplyPtr[T any](dst **T, o Optional[T]) {
	if !o.Set {
		return
	}
	if o.Null {
		*dst = nil
		return
	}
	v := o.Value
	*dst = &v
}
