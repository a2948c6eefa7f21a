package registry

import (
	"context"

	"github.com/on-the-ground/dynbind/dispatch"
	"github.com/on-the-ground/dynbind/dynamic"
)

// Call is one queued invocation.
type Call struct {
	Name string
	Args dynamic.Arguments
}

// PartitionKey keeps calls to the same name on one worker, in order.
func (c Call) PartitionKey() string {
	return c.Name
}

type Result = dispatch.Result[dynamic.Value]

// AsyncInvoker runs registry invocations on a worker pool.
type AsyncInvoker struct {
	dispatcher *dispatch.Dispatcher[Call, dynamic.Value]
}

// Async starts a worker pool invoking through r. Cancelling ctx or calling
// Close on the invoker stops it.
func (r *Registry) Async(ctx context.Context, config dispatch.Config) *AsyncInvoker {
	return &AsyncInvoker{
		dispatcher: dispatch.New(
			ctx,
			config,
			r.logger,
			func(_ context.Context, call Call) (dynamic.Value, error) {
				return r.Invoke(call.Name, call.Args)
			},
		),
	}
}

// Invoke queues a call and returns the channel its single Result arrives on.
func (a *AsyncInvoker) Invoke(ctx context.Context, name string, args dynamic.Arguments) <-chan Result {
	return a.dispatcher.Perform(ctx, Call{Name: name, Args: args})
}

func (a *AsyncInvoker) Close() {
	a.dispatcher.Close()
}
