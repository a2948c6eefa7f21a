// Package pipeline builds ad hoc computation graphs out of named Callables:
// each step invokes one Callable with literal arguments or with the results
// of earlier steps.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/on-the-ground/dynbind/dynamic"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoSteps          = errors.New("pipeline has no steps")
	ErrEmptyStepID      = errors.New("step id is empty")
	ErrDuplicateStep    = errors.New("duplicate step id")
	ErrEmptyCall        = errors.New("step calls nothing")
	ErrBadArg           = errors.New("argument must set exactly one of int, float, string, bool, ref")
	ErrUnknownRef       = errors.New("reference to unknown or later step")
	ErrUnknownOutput    = errors.New("output names an unknown step")
	ErrInvalidOnError   = errors.New("on_error must be abort or skip")
	ErrDependencyFailed = errors.New("referenced step failed")
)

// OnError decides what a failing step does to the rest of the run.
type OnError string

const (
	Abort OnError = "abort"
	Skip  OnError = "skip"
)

type Definition struct {
	Name    string  `yaml:"name"`
	OnError OnError `yaml:"on_error,omitempty"` // default: abort
	Steps   []Step  `yaml:"steps"`
	// Output names the step whose value is the run's output; default: the last step.
	Output string `yaml:"output,omitempty"`
}

type Step struct {
	ID   string `yaml:"id"`
	Call string `yaml:"call"`
	Args []Arg  `yaml:"args,omitempty"`
}

// Arg is either a literal or a reference to an earlier step's result.
type Arg struct {
	Int    *int     `yaml:"int,omitempty"`
	Float  *float64 `yaml:"float,omitempty"`
	String *string  `yaml:"string,omitempty"`
	Bool   *bool    `yaml:"bool,omitempty"`
	Ref    string   `yaml:"ref,omitempty"`
}

func IntArg(v int) Arg         { return Arg{Int: &v} }
func FloatArg(v float64) Arg   { return Arg{Float: &v} }
func StringArg(v string) Arg   { return Arg{String: &v} }
func BoolArg(v bool) Arg       { return Arg{Bool: &v} }
func RefArg(stepID string) Arg { return Arg{Ref: stepID} }

// literal returns the wrapped literal, or isRef for a reference.
func (a Arg) literal() (v dynamic.Value, isRef bool, err error) {
	set := 0
	if a.Int != nil {
		set++
		v = dynamic.Wrap(*a.Int)
	}
	if a.Float != nil {
		set++
		v = dynamic.Wrap(*a.Float)
	}
	if a.String != nil {
		set++
		v = dynamic.Wrap(*a.String)
	}
	if a.Bool != nil {
		set++
		v = dynamic.Wrap(*a.Bool)
	}
	if a.Ref != "" {
		set++
		isRef = true
	}
	if set != 1 {
		return dynamic.Value{}, false, ErrBadArg
	}
	return v, isRef, nil
}

// Resolver finds Callables by name. *registry.Registry is one.
type Resolver interface {
	Lookup(name string) (dynamic.Callable, error)
}

func (d Definition) onError() OnError {
	if d.OnError == "" {
		return Abort
	}
	return d.OnError
}

func (d Definition) outputStep() string {
	if d.Output != "" || len(d.Steps) == 0 {
		return d.Output
	}
	return d.Steps[len(d.Steps)-1].ID
}

// Validate checks d against the Callables resolver knows, without invoking
// anything. Argument counts and types are checked through introspection:
// literals by their own type, references by the referenced Callable's
// declared return type. Every problem found is reported.
func (d Definition) Validate(resolver Resolver) error {
	var errs error
	if d.OnError != "" && d.OnError != Abort && d.OnError != Skip {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrInvalidOnError, d.OnError))
	}
	if len(d.Steps) == 0 {
		return multierr.Append(errs, ErrNoSteps)
	}

	returns := make(map[string]dynamic.TypeID, len(d.Steps))
	for i, step := range d.Steps {
		if step.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("step #%d: %w", i, ErrEmptyStepID))
		} else if _, dup := returns[step.ID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("step %q: %w", step.ID, ErrDuplicateStep))
		}
		errs = multierr.Append(errs, validateStep(step, resolver, returns))
	}

	if d.Output != "" {
		if _, ok := returns[d.Output]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUnknownOutput, d.Output))
		}
	}
	return errs
}

// validateStep records the step's return type in returns, even when the
// step itself is invalid, so later steps are not flooded with ref errors.
func validateStep(step Step, resolver Resolver, returns map[string]dynamic.TypeID) error {
	var errs error
	defer func() {
		if _, seen := returns[step.ID]; !seen && step.ID != "" {
			returns[step.ID] = dynamic.TypeID{}
		}
	}()

	if step.Call == "" {
		return fmt.Errorf("step %q: %w", step.ID, ErrEmptyCall)
	}
	c, err := resolver.Lookup(step.Call)
	if err != nil {
		return fmt.Errorf("step %q: %w", step.ID, err)
	}

	for i, arg := range step.Args {
		lit, isRef, err := arg.literal()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("step %q arg %d: %w", step.ID, i, err))
			continue
		}
		got := lit.Type()
		if isRef {
			var ok bool
			if got, ok = returns[arg.Ref]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("step %q arg %d: %w: %q", step.ID, i, ErrUnknownRef, arg.Ref))
				continue
			}
		}
		want, ok := c.ParamType(i)
		if !ok || got.IsZero() {
			continue
		}
		if got != want {
			errs = multierr.Append(errs, fmt.Errorf(
				"step %q arg %d: %s wants %s, got %s: %w",
				step.ID, i, step.Call, want, got, dynamic.ErrTypeMismatch,
			))
		}
	}
	if len(step.Args) < c.Arity() {
		errs = multierr.Append(errs, fmt.Errorf(
			"step %q: %s is %s, got %d arguments: %w",
			step.ID, step.Call, dynamic.Signature(c), len(step.Args), dynamic.ErrMissingArgument,
		))
	}

	if step.ID != "" {
		if _, seen := returns[step.ID]; !seen {
			returns[step.ID] = c.ReturnType()
		}
	}
	return errs
}

// Parse decodes a YAML definition. Unknown keys are rejected.
func Parse(data []byte) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return Definition{}, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	return def, nil
}

// Load reads and parses the definition at path.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read pipeline: %w", err)
	}
	return Parse(data)
}
