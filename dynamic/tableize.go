package dynamic

import (
	"fmt"
	"reflect"
)

// Tableize memoizes c by argument values. The returned Callable has the same
// signature and validates arguments on every call exactly like c; only the
// call of the bound function is skipped on a hit.
//
// Only use it on Callables built from pure functions. Comparable arguments
// are keyed by value; other fmt.Stringer arguments by their String(), which
// must then identify the value. Anything else bypasses the table.
func Tableize(c Callable, maxTableSize uint32) Callable {
	return &tableized{
		Callable: c,
		memo:     newTrie[Value](maxTableSize),
	}
}

type tableized struct {
	Callable
	memo *trie[Value]
}

type noArgsKey struct{}

// argKey keeps payloads of different dynamic types apart, even when their
// String() renderings collide.
type argKey struct {
	t reflect.Type
	k any
}

func (t *tableized) Invoke(args Arguments) (Value, error) {
	checked, err := checkArgs(t.Callable, args)
	if err != nil {
		return Value{}, err
	}

	keys, ok := tableKeys(checked)
	if !ok {
		return t.Callable.Invoke(Args(checked))
	}
	if v, ok := t.memo.load(keys); ok {
		return v, nil
	}
	v, err := t.Callable.Invoke(Args(checked))
	if err != nil {
		return v, err
	}
	t.memo.store(keys, v)
	return v, nil
}

func tableKeys(args []Value) ([]any, bool) {
	if len(args) == 0 {
		return []any{noArgsKey{}}, true
	}
	keys := make([]any, len(args))
	for i, arg := range args {
		k, ok := tableKey(arg.payload)
		if !ok {
			return nil, false
		}
		keys[i] = k
	}
	return keys, true
}

func tableKey(v any) (any, bool) {
	if v == nil {
		return argKey{}, true
	}
	t := reflect.TypeOf(v)
	if reflect.ValueOf(v).Comparable() {
		return argKey{t: t, k: v}, true
	}
	if stringer, ok := v.(fmt.Stringer); ok {
		return argKey{t: t, k: stringer.String()}, true
	}
	return nil, false
}
