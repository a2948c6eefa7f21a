package dynamic

import (
	"strings"
)

// Callable is the uniform invocation handle around one fixed-arity function.
// Implementations are immutable and may be shared by concurrent callers as
// long as the bound function is itself safe for concurrent use.
type Callable interface {
	// Invoke checks args against the parameter types and calls the bound
	// function. Arguments past the arity are ignored. On error the function
	// has not been called and args are left untouched.
	Invoke(args Arguments) (Value, error)

	Arity() int

	// ParamType returns the type expected at index, false when index >= Arity().
	ParamType(index int) (TypeID, bool)

	// ReturnType is advisory: Invoke never checks it against anything.
	ReturnType() TypeID
}

// Signature renders c as a Go function type, e.g. "func(int, int) int".
func Signature(c Callable) string {
	var sb strings.Builder
	sb.WriteString("func(")
	for i := 0; i < c.Arity(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		t, _ := c.ParamType(i)
		sb.WriteString(t.String())
	}
	sb.WriteString(") ")
	sb.WriteString(c.ReturnType().String())
	return sb.String()
}

var _ Callable = (*function)(nil)

// function is the single representation behind every arity: the parameter
// types computed once at construction, and a closure that receives
// arguments already checked against them.
type function struct {
	params []TypeID
	ret    TypeID
	call   func(args []Value) any
}

func newFunction(ret TypeID, call func(args []Value) any, params ...TypeID) *function {
	return &function{
		params: params,
		ret:    ret,
		call:   call,
	}
}

func (f *function) Invoke(args Arguments) (Value, error) {
	checked, err := checkArgs(f, args)
	if err != nil {
		return Value{}, err
	}
	return Value{payload: f.call(checked), typ: f.ret}, nil
}

func (f *function) Arity() int {
	return len(f.params)
}

func (f *function) ParamType(index int) (TypeID, bool) {
	if index < 0 || index >= len(f.params) {
		return TypeID{}, false
	}
	return f.params[index], true
}

func (f *function) ReturnType() TypeID {
	return f.ret
}

// checkArgs collects the first c.Arity() arguments, failing on the first
// absent index or type mismatch in index order.
func checkArgs(c Callable, args Arguments) ([]Value, error) {
	n := c.Arity()
	if n == 0 {
		return nil, nil
	}
	if args == nil {
		args = Args(nil)
	}
	checked := make([]Value, n)
	for i := 0; i < n; i++ {
		want, _ := c.ParamType(i)
		v, ok := args.At(i)
		if !ok {
			return nil, missingArgument(i, want)
		}
		if v.typ != want {
			return nil, typeMismatch(i, want, v.typ)
		}
		checked[i] = v
	}
	return checked, nil
}
