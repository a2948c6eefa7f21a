package dynamic

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingArgument means the argument list has no element at a required index.
	ErrMissingArgument = errors.New("missing argument")

	// ErrTypeMismatch means an argument exists but was wrapped with a different type.
	ErrTypeMismatch = errors.New("type mismatch")
)

var (
	ErrNotFunction = errors.New("not a function")
	ErrVariadic    = errors.New("variadic functions are not supported")
	ErrResultCount = errors.New("function must return exactly one result")
)

// InvocationError is returned by Callable.Invoke when arguments are rejected.
// The bound function has not been called when it is returned.
type InvocationError struct {
	// Kind is ErrMissingArgument or ErrTypeMismatch.
	Kind     error
	Index    int
	Expected TypeID
	// Actual is zero for a missing argument.
	Actual TypeID
}

func (e *InvocationError) Error() string {
	if e.Kind == ErrMissingArgument {
		return fmt.Sprintf("could not get argument at index %d (want %s): %v", e.Index, e.Expected, e.Kind)
	}
	return fmt.Sprintf("could not downcast argument %d to %s, got %s: %v", e.Index, e.Expected, e.Actual, e.Kind)
}

func (e *InvocationError) Unwrap() error {
	return e.Kind
}

func missingArgument(index int, expected TypeID) error {
	return &InvocationError{Kind: ErrMissingArgument, Index: index, Expected: expected}
}

func typeMismatch(index int, expected, actual TypeID) error {
	return &InvocationError{Kind: ErrTypeMismatch, Index: index, Expected: expected, Actual: actual}
}
