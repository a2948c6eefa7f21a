// Command dynbind registers a handful of functions behind the dynamic
// calling convention, invokes them by name, and optionally runs a pipeline
// file against them.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/on-the-ground/dynbind/dynamic"
	"github.com/on-the-ground/dynbind/internal/config"
	"github.com/on-the-ground/dynbind/internal/logging"
	"github.com/on-the-ground/dynbind/pipeline"
	"github.com/on-the-ground/dynbind/registry"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dynbind: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dynbind", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	pipelinePath := fs.String("pipeline", "", "YAML pipeline to run after the demonstrations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	opts := []registry.Option{registry.WithLogger(logger)}
	if cfg.Cache.Enabled {
		opts = append(opts, registry.WithResultCache(cfg.RegistryCacheConfig()))
	}
	reg, err := registry.New(opts...)
	if err != nil {
		return err
	}
	defer reg.Close()
	registerFunctions(reg)

	if err := compose(reg, stdout); err != nil {
		return err
	}
	if err := arities(ctx, reg, cfg, stdout); err != nil {
		return err
	}
	if *pipelinePath == "" {
		return nil
	}
	return runPipeline(ctx, reg, *pipelinePath, logger, stdout)
}

// compose chains results: add_int(add_int(3, 2), multiply_int(3, 2)).
func compose(reg *registry.Registry, stdout io.Writer) error {
	three, two := dynamic.Wrap(3), dynamic.Wrap(2)

	sum, err := reg.Invoke("add_int", dynamic.ArgsOf(three, two))
	if err != nil {
		return err
	}
	product, err := reg.Invoke("multiply_int", dynamic.ArgsOf(three, two))
	if err != nil {
		return err
	}
	total, err := registry.InvokeAs[int](reg, "add_int", dynamic.ArgsOf(sum, product))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Composed Result: %s + %s = %s\n", sum, product, humanize.Comma(int64(total)))
	return nil
}

// arities invokes one function per arity through the worker pool.
func arities(ctx context.Context, reg *registry.Registry, cfg config.Config, stdout io.Writer) error {
	async := reg.Async(ctx, cfg.DispatchConfig())
	defer async.Close()

	calls := []struct {
		name string
		args dynamic.Args
	}{
		{"hello", nil},
		{"int_to_string", dynamic.ArgsOf(dynamic.Wrap(1))},
		{"two_int_to_string", dynamic.ArgsOf(dynamic.Wrap(1), dynamic.Wrap(2))},
		{"three_int_to_string", dynamic.ArgsOf(dynamic.Wrap(1), dynamic.Wrap(2), dynamic.Wrap(3))},
		{"four_int_to_string", dynamic.ArgsOf(dynamic.Wrap(1), dynamic.Wrap(2), dynamic.Wrap(3), dynamic.Wrap(4))},
	}

	pending := make([]<-chan registry.Result, len(calls))
	for i, call := range calls {
		pending[i] = async.Invoke(ctx, call.name, call.args)
	}

	var errs error
	for i, ch := range pending {
		res := <-ch
		if res.Err != nil {
			errs = multierr.Append(errs, res.Err)
			continue
		}
		s, err := dynamic.Extract[string](res.Value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("result of %q: %w", calls[i].name, err))
			continue
		}
		fmt.Fprintf(stdout, "Generic Result (%d %s): %s\n", i, plural(i, "arg", "args"), s)
	}
	return errs
}

func runPipeline(ctx context.Context, reg *registry.Registry, path string, logger *zap.Logger, stdout io.Writer) error {
	def, err := pipeline.Load(path)
	if err != nil {
		return err
	}
	report, err := pipeline.NewRunner(reg, logger).Run(ctx, def)
	if report != nil {
		printReport(stdout, report)
	}
	return err
}

func printReport(stdout io.Writer, report *pipeline.Report) {
	fmt.Fprintf(stdout, "Pipeline %q (run %s)\n", report.Name, report.RunID)
	for i, res := range report.Results {
		outcome := res.Value.String()
		if res.Err != nil {
			outcome = "error: " + res.Err.Error()
		}
		fmt.Fprintf(stdout, "  %s step %s = %s(...) -> %s [%s]\n",
			humanize.Ordinal(i+1), res.StepID, res.Call, outcome, formatSpan(res.Span.Duration()))
	}
	if report.Output.IsValid() {
		fmt.Fprintf(stdout, "Output: %s\n", report.Output)
	}
	fmt.Fprintf(stdout, "%s failed, took %s\n",
		humanize.Comma(int64(report.Failed())), formatSpan(report.Span.Duration()))
}

// formatSpan renders d in SI seconds, e.g. "1.5 ms".
func formatSpan(d time.Duration) string {
	return humanize.SIWithDigits(d.Seconds(), 3, "s")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
