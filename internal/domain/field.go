package domain

import (
	"bytes"
	"encoding/json"
)

type fieldState uint8

const (
	fieldUnset fieldState = iota
	fieldNull
	fieldSet
)

// Field is an optional record value that distinguishes three states: unset
// (the store never supplied the column), null (the store supplied an explicit
// SQL NULL), and set (a concrete value). The merge policy depends on this
// distinction: "fill only when missing" fields must treat both unset and null
// as missing without confusing either with a legitimate zero value.
//
// The zero Field is unset.
type Field[T any] struct {
	value T
	state fieldState
}

// Set returns a Field holding v.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, state: fieldSet}
}

// Null returns a Field representing an explicit null.
func Null[T any]() Field[T] {
	return Field[T]{state: fieldNull}
}

// IsSet reports whether the field holds a concrete value.
func (f Field[T]) IsSet() bool {
	return f.state == fieldSet
}

// IsNull reports whether the field is an explicit null.
func (f Field[T]) IsNull() bool {
	return f.state == fieldNull
}

// IsUnset reports whether the field was never populated.
func (f Field[T]) IsUnset() bool {
	return f.state == fieldUnset
}

// Missing reports whether the field holds no value, i.e. it is either unset
// or an explicit null. This is the predicate the fill-if-missing merge rules
// are written against.
func (f Field[T]) Missing() bool {
	return f.state != fieldSet
}

// Get returns the held value and whether it is set.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == fieldSet
}

// OrZero returns the held value, or T's zero value when the field is missing.
func (f Field[T]) OrZero() T {
	if f.state == fieldSet {
		return f.value
	}
	var zero T
	return zero
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null yields the null
// state; any other token is decoded as T. Absent keys are never passed to
// UnmarshalJSON, so they leave the field unset.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*f = Null[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Set(v)
	return nil
}

// MarshalJSON implements json.Marshaler. Missing fields encode as null;
// callers that must omit a field entirely check Missing first.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != fieldSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}
