package dynamic_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/on-the-ground/dynbind/dynamic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableize_CachesByArguments(t *testing.T) {
	count := 0
	add := dynamic.Tableize(dynamic.Func2(func(a, b int) int {
		count++
		return a + b
	}), 8)

	for i := 0; i < 3; i++ {
		res, err := add.Invoke(wrapInts(2, 3))
		require.NoError(t, err)
		assert.Equal(t, 5, dynamic.MustExtract[int](res))
	}
	assert.Equal(t, 1, count)

	res, err := add.Invoke(wrapInts(3, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, dynamic.MustExtract[int](res))
	assert.Equal(t, 2, count)
}

func TestTableize_KeepsSignatureAndValidation(t *testing.T) {
	count := 0
	c := dynamic.Tableize(dynamic.Func1(func(x int) float64 {
		count++
		return float64(x)
	}), 2)

	assert.Equal(t, 1, c.Arity())
	assert.Equal(t, "func(int) float64", dynamic.Signature(c))

	_, err := c.Invoke(dynamic.ArgsOf(dynamic.Wrap(1.0)))
	assert.ErrorIs(t, err, dynamic.ErrTypeMismatch)
	_, err = c.Invoke(nil)
	assert.ErrorIs(t, err, dynamic.ErrMissingArgument)
	assert.Equal(t, 0, count)
}

func TestTableize_ZeroArity(t *testing.T) {
	count := 0
	c := dynamic.Tableize(dynamic.Func0(func() string {
		count++
		return "const"
	}), 1)

	for i := 0; i < 3; i++ {
		res, err := c.Invoke(nil)
		require.NoError(t, err)
		assert.Equal(t, "const", res.String())
	}
	assert.Equal(t, 1, count)
}

type nonComparable struct {
	Field []int
}

type labelled struct {
	Field []int
}

func (l labelled) String() string {
	return fmt.Sprintf("labelled%v", l.Field)
}

func TestTableize_StringerFallback(t *testing.T) {
	count := 0
	c := dynamic.Tableize(dynamic.Func1(func(l labelled) int {
		count++
		return len(l.Field)
	}), 4)

	for i := 0; i < 2; i++ {
		res, err := c.Invoke(dynamic.ArgsOf(dynamic.Wrap(labelled{Field: []int{1, 2, 3}})))
		require.NoError(t, err)
		assert.Equal(t, 3, dynamic.MustExtract[int](res))
	}
	assert.Equal(t, 1, count)
}

// level renders coarsely, so distinct values share a String().
type level int

func (l level) String() string {
	if l <= 10 {
		return "low"
	}
	return "high"
}

func TestTableize_ComparableStringerKeyedByValue(t *testing.T) {
	count := 0
	c := dynamic.Tableize(dynamic.Func1(func(l level) int {
		count++
		return int(l)
	}), 8)

	for _, l := range []level{1, 2, 1, 2} {
		res, err := c.Invoke(dynamic.ArgsOf(dynamic.Wrap(l)))
		require.NoError(t, err)
		assert.Equal(t, int(l), dynamic.MustExtract[int](res))
	}
	assert.Equal(t, 2, count)
}

func TestTableize_ConcurrentCallers(t *testing.T) {
	var count atomic.Int64
	c := dynamic.Tableize(dynamic.Func1(func(x int) int {
		count.Add(1)
		return x * 2
	}), 4)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				x := (g + i) % 16
				res, err := c.Invoke(wrapInts(x))
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, x*2, dynamic.MustExtract[int](res))
			}
		}(g)
	}
	wg.Wait()
	assert.Positive(t, count.Load())
}

func TestTableize_NonComparableBypassesTable(t *testing.T) {
	count := 0
	c := dynamic.Tableize(dynamic.Func1(func(n nonComparable) int {
		count++
		return len(n.Field)
	}), 4)

	assert.NotPanics(t, func() {
		for i := 0; i < 2; i++ {
			res, err := c.Invoke(dynamic.ArgsOf(dynamic.Wrap(nonComparable{Field: []int{1}})))
			require.NoError(t, err)
			assert.Equal(t, 1, dynamic.MustExtract[int](res))
		}
	})
	assert.Equal(t, 2, count)
}

func TestTableize_BoundedGenerations(t *testing.T) {
	count := 0
	c := dynamic.Tableize(dynamic.Func1(func(x int) int {
		count++
		return x
	}), 1)

	invoke := func(x int) {
		_, err := c.Invoke(wrapInts(x))
		require.NoError(t, err)
	}

	invoke(1) // miss, head generation full
	invoke(2) // miss, rotates: 1 survives in the old generation
	invoke(1) // hit
	assert.Equal(t, 2, count)

	invoke(3) // miss, rotates again and drops 1
	invoke(1) // miss
	assert.Equal(t, 4, count)
}

func TestTableize_ZeroSizePanics(t *testing.T) {
	assert.Panics(t, func() {
		dynamic.Tableize(dynamic.Func0(func() int { return 0 }), 0)
	})
}
