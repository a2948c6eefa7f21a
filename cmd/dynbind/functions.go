package main

import (
	"fmt"

	"github.com/on-the-ground/dynbind/dynamic"
	"github.com/on-the-ground/dynbind/registry"
)

const memoSize = 1 << 10

func intToString(x int) string { return fmt.Sprint(x) }

func twoIntToString(x, y int) string { return fmt.Sprintf("%d %d", x, y) }

func registerFunctions(r *registry.Registry) {
	r.MustRegister("add_int", dynamic.Func2(func(a, b int) int { return a + b }))
	r.MustRegister("multiply_int", dynamic.Tableize(dynamic.Func2(func(a, b int) int { return a * b }), memoSize))
	r.MustRegister("int_to_float", dynamic.Func1(func(x int) float64 { return float64(x) }))
	r.MustRegister("int_to_string", dynamic.Func1(intToString))
	r.MustRegister("two_int_to_string", dynamic.Func2(twoIntToString))
	r.MustRegister("three_int_to_string", dynamic.Func3(func(x, y, z int) string {
		return fmt.Sprintf("%d %d %d", x, y, z)
	}))
	r.MustRegister("four_int_to_string", dynamic.Func4(func(x, y, z, w int) string {
		return fmt.Sprintf("%d %d %d %d", x, y, z, w)
	}))
	r.MustRegister("hello", dynamic.Func0(func() string { return "Hello, World!" }))
}
