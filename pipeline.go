package tap

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Pipeline runs a linear sequence of steps. It can be customized with pre- and post-
// execution hooks, where functionality common to every run can be defined.
//
// Steps are terminal: the first failing step aborts the run and the remaining steps
// are reported as skipped.
type Pipeline struct {
	PreExecHook  Task
	PostExecHook Task

	out io.Writer
}

// New constructs a pipeline.
func New(opts ...Option) *Pipeline {
	p := Pipeline{
		PreExecHook:  func(_ context.Context) error { return nil },
		PostExecHook: func(_ context.Context) error { return nil },
		out:          color.Output,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return &p
}

// Execute the steps in order.
// Every step shows a consistent output where its status and timing info are clearly visible.
// The returned error is the error of the failing step, unmodified, so callers can inspect
// its [ErrorKind].
func (p *Pipeline) Execute(ctx context.Context, steps ...Step) error {
	start := time.Now()

	fmt.Fprintf(p.out, "\n")

	if err := p.PreExecHook(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	var failed error
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			failed = err
		} else {
			failed = p.run(ctx, step)
		}

		if failed != nil {
			for _, skipped := range steps[i+1:] {
				color.New(color.FgHiBlack).Fprintf(p.out, " - %s skipped\n", skipped.Name)
			}
			break
		}
	}

	if err := p.PostExecHook(ctx); err != nil && failed == nil {
		return fmt.Errorf("failed to run post exec hook: %w", err)
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	color.New(color.FgHiBlack).Fprintf(p.out, "------------------------\n\n")

	if failed != nil {
		color.New(color.FgRed).Fprintf(p.out, " ✘ failed after %s\n", elapsed)
		color.New(color.FgRed).Fprintf(p.out, "   • %s\n\n", failed)
		return failed
	}

	color.New(color.FgGreen).Fprintf(p.out, " ✔ all good after %s\n\n", elapsed)
	return nil
}

func (p *Pipeline) run(ctx context.Context, step Step) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.New(color.FgRed).Fprintf(p.out, " ✘ %s\n\n", elapsed)
			return
		}
		color.New(color.FgGreen).Fprintf(p.out, " ✔ %s\n\n", elapsed)
	}()

	LogStep(p.out, step.Name)
	return step.Run(ctx)
}

// Task defines the basic function that the pipeline executes.
// Additional configuration can be done by using closures which return Tasks.
type Task func(ctx context.Context) error

// Step is a named [Task].
type Step struct {
	Name string
	Run  Task
}

// Named builds a [Step].
func Named(name string, task Task) Step {
	return Step{Name: name, Run: task}
}

type Option func(p *Pipeline)

// WithPreExecFunc allows specifying a task that will be run every execution, before the
// steps are run.
func WithPreExecFunc(hook Task) Option {
	return func(p *Pipeline) {
		p.PreExecHook = hook
	}
}

// WithPostExecFunc allows specifying a task that will be run every execution, after the
// steps are run, even if one of them failed.
func WithPostExecFunc(hook Task) Option {
	return func(p *Pipeline) {
		p.PostExecHook = hook
	}
}

// WithOutput redirects the pipeline status output.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) {
		if w != nil {
			p.out = w
		}
	}
}

// LogStep prints a fancy-ish log line for a step.
func LogStep(w io.Writer, text string) {
	fmt.Fprintln(
		w,
		color.MagentaString(" ⌘"),
		color.New(color.Bold).Sprint(text),
	)
}

// LogDetail prints an indented detail line below a step.
func LogDetail(w io.Writer, text string) {
	fmt.Fprintln(
		w,
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}
