package dynamic

import (
	"fmt"
	"reflect"
)

// TypeID identifies a concrete Go type. It is stable for the lifetime of the
// process and comparable with ==.
type TypeID struct {
	t reflect.Type
}

// TypeOf returns the TypeID of T.
func TypeOf[T any]() TypeID {
	return TypeID{t: reflect.TypeOf((*T)(nil)).Elem()}
}

// TypeIDOf returns the TypeID of a reflect.Type.
func TypeIDOf(t reflect.Type) TypeID {
	return TypeID{t: t}
}

// IsZero reports whether id names no type at all.
func (id TypeID) IsZero() bool {
	return id.t == nil
}

func (id TypeID) String() string {
	if id.t == nil {
		return "<invalid>"
	}
	return id.t.String()
}

// Value holds one value of any concrete type together with its TypeID.
// The zero Value is invalid and matches no type.
type Value struct {
	payload any
	typ     TypeID
}

// Wrap erases v, recording T as its type.
func Wrap[T any](v T) Value {
	return Value{payload: v, typ: TypeOf[T]()}
}

// WrapAny erases v, recording its dynamic type. WrapAny(nil) returns the
// invalid Value.
func WrapAny(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{payload: v, typ: TypeID{t: reflect.TypeOf(v)}}
}

// Type returns the TypeID the value was wrapped with.
func (v Value) Type() TypeID {
	return v.typ
}

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool {
	return !v.typ.IsZero()
}

// Interface returns the payload as an any.
func (v Value) Interface() any {
	return v.payload
}

func (v Value) String() string {
	if !v.IsValid() {
		return "<invalid>"
	}
	return fmt.Sprintf("%v", v.payload)
}

// As returns the payload of v as a T if and only if v was wrapped as a T.
func As[T any](v Value) (T, bool) {
	if v.typ != TypeOf[T]() {
		var zero T
		return zero, false
	}
	return unwrap[T](v), true
}

// Extract is As with an error carrying both types on mismatch.
func Extract[T any](v Value) (T, error) {
	res, ok := As[T](v)
	if !ok {
		return res, fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, TypeOf[T](), v.typ)
	}
	return res, nil
}

// MustExtract is the panic-on-failure variant of Extract.
func MustExtract[T any](v Value) T {
	res, err := Extract[T](v)
	if err != nil {
		panic(err)
	}
	return res
}

// unwrap converts a payload whose TypeID has already been checked against T.
// A nil payload only happens for interface-typed T holding nil.
func unwrap[T any](v Value) T {
	if v.payload == nil {
		var zero T
		return zero
	}
	return v.payload.(T)
}
