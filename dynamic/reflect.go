package dynamic

import (
	"fmt"
	"reflect"
)

// FuncOf binds a function of any fixed arity through reflection. fn must be
// a non-variadic function with exactly one result.
func FuncOf(fn any) (Callable, error) {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %T", ErrNotFunction, fn)
	}
	if rv.IsNil() {
		return nil, fmt.Errorf("%w: nil %T", ErrNotFunction, fn)
	}
	rt := rv.Type()
	if rt.IsVariadic() {
		return nil, fmt.Errorf("%w: %s", ErrVariadic, rt)
	}
	if rt.NumOut() != 1 {
		return nil, fmt.Errorf("%w: %s", ErrResultCount, rt)
	}

	params := make([]TypeID, rt.NumIn())
	for i := range params {
		params[i] = TypeIDOf(rt.In(i))
	}

	return newFunction(
		TypeIDOf(rt.Out(0)),
		func(args []Value) any {
			in := make([]reflect.Value, len(args))
			for i, arg := range args {
				if arg.payload == nil {
					in[i] = reflect.Zero(rt.In(i))
					continue
				}
				in[i] = reflect.ValueOf(arg.payload)
			}
			return rv.Call(in)[0].Interface()
		},
		params...,
	), nil
}

// MustFuncOf is the panic-on-failure variant of FuncOf.
func MustFuncOf(fn any) Callable {
	c, err := FuncOf(fn)
	if err != nil {
		panic(err)
	}
	return c
}
