package dynamic

// Arguments is the ordered, 0-indexed argument list of a call.
// It does not enforce arity; that is the Callable's job.
type Arguments interface {
	// At returns the argument at index, or false when index is out of range.
	At(index int) (Value, bool)
	Len() int
}

var _ Arguments = Args{}

// Args is the slice implementation of Arguments.
type Args []Value

// ArgsOf builds an argument list in call-site order.
func ArgsOf(values ...Value) Args {
	return Args(values)
}

func (a Args) At(index int) (Value, bool) {
	if index < 0 || index >= len(a) {
		return Value{}, false
	}
	return a[index], true
}

func (a Args) Len() int {
	return len(a)
}
