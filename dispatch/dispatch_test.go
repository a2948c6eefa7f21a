package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/on-the-ground/dynbind/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type job struct {
	key string
	n   int
}

func (j job) PartitionKey() string {
	return j.key
}

func await[R any](t *testing.T, ch <-chan dispatch.Result[R]) dispatch.Result[R] {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok, "result channel closed without a result")
		return res
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for result")
	}
	return dispatch.Result[R]{}
}

func TestNewConfig_Defaults(t *testing.T) {
	assert.Equal(t, dispatch.Config{BufferSize: 1, NumWorkers: 1}, dispatch.NewConfig(0, -3))
	assert.Equal(t, dispatch.Config{BufferSize: 8, NumWorkers: 2}, dispatch.NewConfig(8, 2))
}

func TestDispatcher_PerformReturnsHandlerResult(t *testing.T) {
	ctx := context.Background()
	d := dispatch.New(ctx, dispatch.NewConfig(4, 3), nil, func(ctx context.Context, j job) (int, error) {
		if j.n < 0 {
			return 0, errors.New("negative")
		}
		return j.n * 2, nil
	})
	defer d.Close()
	assert.NotEmpty(t, d.ID)

	res := await(t, d.Perform(ctx, job{key: "a", n: 21}))
	require.NoError(t, res.Err)
	assert.Equal(t, 42, res.Value)

	res = await(t, d.Perform(ctx, job{key: "b", n: -1}))
	assert.EqualError(t, res.Err, "negative")
}

func TestDispatcher_SameKeyKeepsOrder(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var seen []int
	d := dispatch.New(ctx, dispatch.NewConfig(16, 4), nil, func(ctx context.Context, j job) (struct{}, error) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, j.n)
		return struct{}{}, nil
	})
	defer d.Close()

	chs := make([]<-chan dispatch.Result[struct{}], 10)
	for i := range chs {
		chs[i] = d.Perform(ctx, job{key: "same", n: i})
	}
	for _, ch := range chs {
		await(t, ch)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, seen)
}

func TestDispatcher_ConcurrentPerforms(t *testing.T) {
	ctx := context.Background()
	d := dispatch.New(ctx, dispatch.NewConfig(8, 4), nil, func(ctx context.Context, j job) (int, error) {
		return j.n + 1, nil
	})
	defer d.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res := <-d.Perform(ctx, job{key: string(rune('a' + i%7)), n: i})
			if res.Err != nil || res.Value != i+1 {
				errs <- errors.New("unexpected result")
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	assert.Empty(t, errs)
}

func TestDispatcher_HandlerPanicBecomesError(t *testing.T) {
	ctx := context.Background()
	d := dispatch.New(ctx, dispatch.NewConfig(1, 1), nil, func(ctx context.Context, j job) (int, error) {
		panic("kaboom")
	})
	defer d.Close()

	res := await(t, d.Perform(ctx, job{key: "x"}))
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "kaboom")

	// the worker survives
	res = await(t, d.Perform(ctx, job{key: "x"}))
	assert.Error(t, res.Err)
}

func TestDispatcher_PerformAfterClose(t *testing.T) {
	ctx := context.Background()
	called := false
	d := dispatch.New(ctx, dispatch.NewConfig(1, 2), nil, func(ctx context.Context, j job) (int, error) {
		called = true
		return 0, nil
	})
	d.Close()
	d.Close()

	res := await(t, d.Perform(ctx, job{key: "late"}))
	assert.ErrorIs(t, res.Err, dispatch.ErrClosed)
	assert.False(t, called)
}

func TestDispatcher_CancelledCallerContext(t *testing.T) {
	d := dispatch.New(context.Background(), dispatch.NewConfig(1, 1), nil, func(ctx context.Context, j job) (int, error) {
		return 1, nil
	})
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := await(t, d.Perform(ctx, job{key: "k"}))
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestDispatcher_ParentCancelClosesDispatcher(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	d := dispatch.New(parent, dispatch.NewConfig(1, 1), nil, func(ctx context.Context, j job) (int, error) {
		return 1, nil
	})
	cancel()

	assert.Eventually(t, func() bool {
		res := <-d.Perform(context.Background(), job{key: "k"})
		return errors.Is(res.Err, dispatch.ErrClosed)
	}, time.Second, 10*time.Millisecond)
}
