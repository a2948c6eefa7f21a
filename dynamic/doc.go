// Package dynamic invokes statically-typed Go functions through a uniform,
// runtime-typed interface.
//
// A caller holding a Callable knows nothing about the parameter or return
// types of the function behind it, yet every call is still type-checked:
// arguments travel as Values that remember the exact Go type they were
// wrapped with, and a Callable refuses to run its function unless every
// argument matches the declared parameter type identically.
//
// The pieces:
//   - Value: a type-erased container plus its TypeID. Wrap records the type,
//     As / Extract recover it and fail on any other type.
//   - Arguments / Args: the ordered argument list handed to a call.
//   - Callable: Invoke plus introspection (Arity, ParamType, ReturnType).
//   - Func0 to Func4: typed constructors binding a function to a Callable.
//     FuncOf does the same for any fixed arity through reflection.
//   - Tableize: memoizes a Callable built from a pure function.
//
// There is no coercion. An int argument never satisfies an int64 or float64
// parameter.
//
// Example:
//
//	add := dynamic.Func2(func(a, b int) int { return a + b })
//	res, err := add.Invoke(dynamic.ArgsOf(dynamic.Wrap(3), dynamic.Wrap(2)))
//	if err != nil {
//	    return err
//	}
//	sum, _ := dynamic.As[int](res) // 5
package dynamic
