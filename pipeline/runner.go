package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/dynbind/dynamic"
	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// StepResult is the outcome of one step. Exactly one of Value and Err is set.
type StepResult struct {
	StepID string
	Call   string
	Value  dynamic.Value
	Err    error
	Span   timespan.TimeSpan
}

// Report is what a run produced, in step order.
type Report struct {
	RunID   uuid.UUID
	Name    string
	Results []StepResult
	// Output is the output step's value; invalid when that step failed or never ran.
	Output dynamic.Value
	Span   timespan.TimeSpan

	byID map[string]int
}

// Result returns the outcome of the named step, if it ran.
func (r *Report) Result(stepID string) (StepResult, bool) {
	i, ok := r.byID[stepID]
	if !ok {
		return StepResult{}, false
	}
	return r.Results[i], true
}

// Failed counts the steps that returned an error.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

type Runner struct {
	resolver Resolver
	logger   *zap.Logger
}

func NewRunner(resolver Resolver, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{resolver: resolver, logger: logger}
}

// Run validates def and then executes its steps in order. A step's result
// value is shared by every later step that references it.
//
// With Abort, the first failing step ends the run and its error is returned
// along with the partial report. With Skip, steps depending on a failed step
// fail with ErrDependencyFailed, the rest still run, and all step errors are
// returned combined. A cancelled ctx stops the run before the next step.
func (r *Runner) Run(ctx context.Context, def Definition) (*Report, error) {
	if err := def.Validate(r.resolver); err != nil {
		return nil, fmt.Errorf("invalid pipeline %q: %w", def.Name, err)
	}

	report := &Report{
		RunID:   uuid.New(),
		Name:    def.Name,
		Results: make([]StepResult, 0, len(def.Steps)),
		byID:    make(map[string]int, len(def.Steps)),
	}
	logger := r.logger.With(zap.String("pipeline", def.Name), zap.Stringer("runId", report.RunID))
	logger.Info("pipeline started", zap.Int("steps", len(def.Steps)))

	started := time.Now()
	defer func() {
		report.Span = timespan.BetweenTimes(started, time.Now())
	}()

	var errs error
	for _, step := range def.Steps {
		if err := ctx.Err(); err != nil {
			logger.Warn("pipeline cancelled", zap.String("step", step.ID), zap.Error(err))
			return report, multierr.Append(errs, err)
		}

		res := r.runStep(step, report)
		report.byID[step.ID] = len(report.Results)
		report.Results = append(report.Results, res)

		if res.Err == nil {
			logger.Debug("step done",
				zap.String("step", step.ID),
				zap.Stringer("value", res.Value),
				zap.Duration("took", res.Span.Duration()),
			)
			continue
		}
		logger.Warn("step failed", zap.String("step", step.ID), zap.Error(res.Err))
		stepErr := fmt.Errorf("step %q: %w", step.ID, res.Err)
		if def.onError() == Abort {
			return report, stepErr
		}
		errs = multierr.Append(errs, stepErr)
	}

	if res, ok := report.Result(def.outputStep()); ok && res.Err == nil {
		report.Output = res.Value
	}
	logger.Info("pipeline finished", zap.Int("failed", report.Failed()))
	return report, errs
}

func (r *Runner) runStep(step Step, report *Report) (res StepResult) {
	res = StepResult{StepID: step.ID, Call: step.Call}
	started := time.Now()
	defer func() {
		res.Span = timespan.BetweenTimes(started, time.Now())
	}()

	args := make(dynamic.Args, 0, len(step.Args))
	for _, arg := range step.Args {
		v, isRef, err := arg.literal()
		if err != nil {
			res.Err = err
			return res
		}
		if isRef {
			dep, _ := report.Result(arg.Ref)
			if dep.Err != nil {
				res.Err = fmt.Errorf("%w: %q", ErrDependencyFailed, arg.Ref)
				return res
			}
			v = dep.Value
		}
		args = append(args, v)
	}

	if inv, ok := r.resolver.(invoker); ok {
		res.Value, res.Err = inv.Invoke(step.Call, args)
		return res
	}
	c, err := r.resolver.Lookup(step.Call)
	if err != nil {
		res.Err = err
		return res
	}
	res.Value, res.Err = c.Invoke(args)
	return res
}

// invoker is a Resolver that invokes by name itself, with its own caching
// and logging.
type invoker interface {
	Invoke(name string, args dynamic.Arguments) (dynamic.Value, error)
}
