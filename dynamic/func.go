package dynamic

// Func0 binds a function taking no arguments. Its Callable ignores whatever
// arguments it is given.
func Func0[O any](fn func() O) Callable {
	return newFunction(
		TypeOf[O](),
		func(_ []Value) any {
			return fn()
		},
	)
}

// Func1 binds a one-argument function.
func Func1[I1, O any](fn func(I1) O) Callable {
	return newFunction(
		TypeOf[O](),
		func(args []Value) any {
			return fn(unwrap[I1](args[0]))
		},
		TypeOf[I1](),
	)
}

// Func2 binds a two-argument function.
func Func2[I1, I2, O any](fn func(I1, I2) O) Callable {
	return newFunction(
		TypeOf[O](),
		func(args []Value) any {
			return fn(unwrap[I1](args[0]), unwrap[I2](args[1]))
		},
		TypeOf[I1](), TypeOf[I2](),
	)
}

// Func3 binds a three-argument function.
func Func3[I1, I2, I3, O any](fn func(I1, I2, I3) O) Callable {
	return newFunction(
		TypeOf[O](),
		func(args []Value) any {
			return fn(unwrap[I1](args[0]), unwrap[I2](args[1]), unwrap[I3](args[2]))
		},
		TypeOf[I1](), TypeOf[I2](), TypeOf[I3](),
	)
}

// Func4 binds a four-argument function.
func Func4[I1, I2, I3, I4, O any](fn func(I1, I2, I3, I4) O) Callable {
	return newFunction(
		TypeOf[O](),
		func(args []Value) any {
			return fn(unwrap[I1](args[0]), unwrap[I2](args[1]), unwrap[I3](args[2]), unwrap[I4](args[3]))
		},
		TypeOf[I1](), TypeOf[I2](), TypeOf[I3](), TypeOf[I4](),
	)
}
