// Package dispatch runs payloads on a fixed pool of workers and delivers each
// result on its own channel.
//
// Payloads are routed by hashing their PartitionKey, so payloads sharing a key
// are handled by the same worker in submission order.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is delivered to performs that race with or follow Close.
var ErrClosed = errors.New("dispatcher is closed")

type Partitionable interface {
	PartitionKey() string
}

type Config struct {
	BufferSize int // default: 1
	NumWorkers int // default: 1
}

func NewConfig(bufferSize int, numWorkers int) Config {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return Config{
		BufferSize: bufferSize,
		NumWorkers: numWorkers,
	}
}

// Result is what a handled payload resolves to.
type Result[R any] struct {
	Value R
	Err   error
}

func ResultFrom[R any](res R, err error) Result[R] {
	return Result[R]{Value: res, Err: err}
}

type message[P any, R any] struct {
	ctx      context.Context
	payload  P
	resumeCh chan Result[R]
}

// Dispatcher owns NumWorkers goroutines, each draining its own queue.
type Dispatcher[P Partitionable, R any] struct {
	ID string

	queues []chan message[P, R]

	// mu orders in-flight sends against Close: senders hold it shared,
	// Close takes it exclusively once done is closed.
	mu        sync.RWMutex
	done      chan struct{}
	cancel    context.CancelFunc
	closeOnce sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
}

// New starts the workers. Cancelling ctx closes the dispatcher.
func New[P Partitionable, R any](
	ctx context.Context,
	config Config,
	logger *zap.Logger,
	handleFn func(context.Context, P) (R, error),
) *Dispatcher[P, R] {
	config = NewConfig(config.BufferSize, config.NumWorkers)
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(ctx)

	d := &Dispatcher[P, R]{
		ID:     uuid.New().String(),
		queues: make([]chan message[P, R], config.NumWorkers),
		done:   make(chan struct{}),
		cancel: cancel,
		logger: logger,
	}

	ready := sync.WaitGroup{}
	for i := range d.queues {
		ch := make(chan message[P, R], config.BufferSize)
		d.queues[i] = ch
		ready.Add(1)
		d.wg.Add(1)
		go func(ch chan message[P, R]) {
			defer d.wg.Done()
			ready.Done()
			for {
				select {
				case msg := <-ch:
					d.handle(ctx, msg, handleFn)
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
	ready.Wait()
	context.AfterFunc(ctx, d.Close)

	logger.Debug("dispatcher started",
		zap.String("dispatcherId", d.ID),
		zap.Int("numWorkers", config.NumWorkers),
		zap.Int("bufferSize", config.BufferSize),
	)
	return d
}

func (d *Dispatcher[P, R]) handle(
	workerCtx context.Context,
	msg message[P, R],
	handleFn func(context.Context, P) (R, error),
) {
	defer close(msg.resumeCh)
	if err := msg.ctx.Err(); err != nil {
		msg.resumeCh <- ResultFrom(*new(R), err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in handler",
				zap.String("dispatcherId", d.ID),
				zap.Any("payload", msg.payload),
				zap.Any("panic", r),
			)
			msg.resumeCh <- ResultFrom(*new(R), fmt.Errorf("handler panicked: %v", r))
		}
	}()
	ctx, stop := mergeCancel(workerCtx, msg.ctx)
	defer stop()
	msg.resumeCh <- ResultFrom(handleFn(ctx, msg.payload))
}

// drain answers whatever is still queued once the workers are gone.
func (d *Dispatcher[P, R]) drain(ch chan message[P, R]) {
	for {
		select {
		case msg := <-ch:
			msg.resumeCh <- ResultFrom(*new(R), ErrClosed)
			close(msg.resumeCh)
		default:
			return
		}
	}
}

// Perform queues payload and returns a channel that yields exactly one
// Result and is then closed.
func (d *Dispatcher[P, R]) Perform(ctx context.Context, payload P) <-chan Result[R] {
	// buffered so a worker never blocks on an abandoned receiver
	resumeCh := make(chan Result[R], 1)
	fail := func(err error) <-chan Result[R] {
		resumeCh <- ResultFrom(*new(R), err)
		close(resumeCh)
		return resumeCh
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	select {
	case <-d.done:
		return fail(ErrClosed)
	default:
	}

	msg := message[P, R]{ctx: ctx, payload: payload, resumeCh: resumeCh}
	select {
	case <-ctx.Done():
		return fail(ctx.Err())
	case <-d.done:
		return fail(ErrClosed)
	case d.queues[indexOf(payload, len(d.queues))] <- msg:
	}
	return resumeCh
}

// Close stops the workers and waits for them. Payloads still queued resolve
// to ErrClosed. Close is idempotent; it must not be called from a handler.
func (d *Dispatcher[P, R]) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
		d.mu.Lock()
		d.mu.Unlock() // no send is in flight past this point
		d.cancel()
		d.wg.Wait()
		for _, ch := range d.queues {
			d.drain(ch)
		}
		d.logger.Debug("dispatcher closed", zap.String("dispatcherId", d.ID))
	})
}

func indexOf(payload Partitionable, numQueues int) int {
	switch numQueues {
	case 0:
		panic("number of queues cannot be 0")
	case 1:
		return 0
	default:
		return int(xxhash.Sum64String(payload.PartitionKey()) % uint64(numQueues))
	}
}

// mergeCancel returns a context cancelled when either parent is.
func mergeCancel(a, b context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
