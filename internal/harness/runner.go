// Package harness drives a Partio client through an ordered sequence of
// lifecycle steps against a live deployment and reports the outcome of each.
package harness

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
)

// StepFunc is the body of one step. A nil return is a pass, an error made by
// SkipStep is a skip and any other error is a failure.
type StepFunc func(ctx context.Context) error

// Step is a named StepFunc.
type Step struct {
	Name string
	Run  StepFunc
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// UI receives one progress line per step. Defaults to a discarding UI.
	UI cli.Ui

	// Logger receives per-step debug logs.
	Logger hclog.Logger

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// CountSkipsAsFailures records skipped steps as failures.
	CountSkipsAsFailures bool
}

// Runner executes steps strictly in order. A failing or panicking step is
// recorded and the sequence continues.
type Runner struct {
	ui                   cli.Ui
	logger               hclog.Logger
	now                  func() time.Time
	countSkipsAsFailures bool

	started time.Time
	results []Result
}

// NewRunner returns a Runner whose runtime clock starts now.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		ui:                   opts.UI,
		logger:               opts.Logger,
		now:                  opts.Clock,
		countSkipsAsFailures: opts.CountSkipsAsFailures,
	}
	if r.ui == nil {
		r.ui = &cli.BasicUi{Writer: io.Discard, ErrorWriter: io.Discard}
	}
	if r.logger == nil {
		r.logger = hclog.NewNullLogger()
	}
	if r.now == nil {
		r.now = time.Now
	}
	r.started = r.now()
	return r
}

// RunAll runs steps in order and returns the summary of every step run so
// far.
func (r *Runner) RunAll(ctx context.Context, steps []Step) Summary {
	for _, step := range steps {
		r.Run(ctx, step.Name, step.Run)
	}
	return r.Summary()
}

// Run executes one step, prints its progress line and records the result.
func (r *Runner) Run(ctx context.Context, name string, fn StepFunc) Result {
	start := r.now()
	err := r.invoke(ctx, fn)
	res := Result{
		Name:    name,
		Outcome: Pass,
		Elapsed: r.now().Sub(start),
	}

	if err != nil {
		res.Outcome = Fail
		res.Message = err.Error()
		if reason, ok := skipReason(err); ok && !r.countSkipsAsFailures {
			res.Outcome = Skip
			res.Message = reason
		}
	}

	r.results = append(r.results, res)
	r.ui.Output(formatResult(res))
	r.logger.Debug("step finished",
		"name", name,
		"outcome", res.Outcome.String(),
		"elapsed", res.Elapsed,
	)
	return res
}

// invoke calls fn and converts a panic into an error.
func (r *Runner) invoke(ctx context.Context, fn StepFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("step panicked", "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

// Results returns the recorded results in execution order.
func (r *Runner) Results() []Result {
	out := make([]Result, len(r.results))
	copy(out, r.results)
	return out
}

// Summary aggregates the results recorded so far.
func (r *Runner) Summary() Summary {
	s := Summary{
		Total:   len(r.results),
		Runtime: r.now().Sub(r.started),
	}
	for _, res := range r.results {
		switch res.Outcome {
		case Pass:
			s.Passed++
		case Skip:
			s.Skipped++
			s.SkippedTests = append(s.SkippedTests, res.Name)
		default:
			s.Failed++
			s.FailedTests = append(s.FailedTests, res.Name)
		}
	}
	return s
}

func formatResult(res Result) string {
	line := fmt.Sprintf("  %s  %s (%dms)", res.Outcome, res.Name, res.Elapsed.Milliseconds())
	if res.Outcome != Pass && res.Message != "" {
		line += " - " + res.Message
	}
	return line
}
