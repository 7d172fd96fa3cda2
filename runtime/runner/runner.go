// Package runner walks an agent-team tree and executes it against a run
// session: sequences run children in order, parallels fan out with a join
// barrier, loops repeat until an exit signal or the iteration bound, and
// leaf agents drive a model with capability access.
package runner

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/llm"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/progress"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/service/invoker"
	"github.com/gavelflow/gavel/tracing"
)

// Config tunes runner defaults that team definitions can override per node.
type Config struct {
	// MaxModelAttempts bounds model invocations per agent step, the first
	// call included.
	MaxModelAttempts int

	// RetryDelay is the base delay between model retry attempts.
	RetryDelay time.Duration

	// DefaultMaxIterations bounds loop nodes that do not set their own.
	DefaultMaxIterations int

	// MaxToolTurns bounds tool-call rounds within a single model attempt.
	MaxToolTurns int
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{
		MaxModelAttempts:     2,
		RetryDelay:           time.Second,
		DefaultMaxIterations: 3,
		MaxToolTurns:         8,
	}
}

// Runner executes team trees.
type Runner struct {
	tools   *extension.Tools
	invoker invoker.Service
	models  *llm.Registry
	config  Config
}

// New creates a runner.
func New(tools *extension.Tools, anInvoker invoker.Service, models *llm.Registry, config Config) *Runner {
	if config.MaxModelAttempts <= 0 {
		config.MaxModelAttempts = DefaultConfig().MaxModelAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}
	if config.DefaultMaxIterations <= 0 {
		config.DefaultMaxIterations = DefaultConfig().DefaultMaxIterations
	}
	if config.MaxToolTurns <= 0 {
		config.MaxToolTurns = DefaultConfig().MaxToolTurns
	}
	return &Runner{tools: tools, invoker: anInvoker, models: models, config: config}
}

// Run executes the run's team tree to completion and stamps the terminal
// status on the run.
func (r *Runner) Run(ctx *execution.Context, run *execution.Run) error {
	run.SetStatus(execution.StateRunning)
	run.Session.ApplyParameters(run.Team.Init)

	spanCtx, span := tracing.StartSpan(ctx, "run "+run.Team.Name, "INTERNAL")
	run.Span = span
	runCtx := ctx.StepContext(nil, run.Team.Root)
	runCtx.Context = spanCtx

	err := r.runNode(runCtx, run, run.Team.Root)
	tracing.EndSpan(span, err)
	if err != nil {
		run.SetStatus(execution.StateFailed)
		return err
	}
	run.SetStatus(execution.StateCompleted)
	return nil
}

func (r *Runner) runNode(ctx *execution.Context, run *execution.Run, node *graph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch node.Kind {
	case graph.KindAgent:
		return r.runAgent(ctx, run, node)
	case graph.KindSequence:
		return r.runSequence(ctx, run, node)
	case graph.KindParallel:
		return r.runParallel(ctx, run, node)
	case graph.KindLoop:
		return r.runLoop(ctx, run, node)
	default:
		return fmt.Errorf("node %s has unknown kind %q", node.Name, node.Kind)
	}
}

// runSequence executes children in declared order; the first failure stops
// the sequence.
func (r *Runner) runSequence(ctx *execution.Context, run *execution.Run, node *graph.Node) error {
	for _, child := range node.Nodes {
		if err := r.runNode(ctx, run, child); err != nil {
			return err
		}
	}
	return nil
}

// runParallel fans children out on goroutines and waits for all of them
// regardless of individual failures, so every branch's session writes are
// visible after the barrier. Branch errors are aggregated.
func (r *Runner) runParallel(ctx *execution.Context, run *execution.Run, node *graph.Node) error {
	var wg sync.WaitGroup
	errs := make([]error, len(node.Nodes))
	for i, child := range node.Nodes {
		wg.Add(1)
		go func(i int, child *graph.Node) {
			defer wg.Done()
			errs[i] = r.runNode(ctx, run, child)
		}(i, child)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// runLoop repeats its children as a sequence. The exit signal is inspected
// only between iterations, so a mid-iteration exit request still lets the
// remaining siblings of that iteration run. Exhausting the iteration bound
// is a normal outcome.
func (r *Runner) runLoop(ctx *execution.Context, run *execution.Run, node *graph.Node) error {
	control := &execution.LoopControl{}
	loopCtx := ctx.LoopContext(control)

	maxIterations := node.MaxIterations
	if maxIterations <= 0 {
		maxIterations = r.config.DefaultMaxIterations
	}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		for _, child := range node.Nodes {
			if err := r.runNode(loopCtx, run, child); err != nil {
				return err
			}
		}
		if control.Requested() {
			break
		}
	}
	return nil
}

// waitRetry sleeps for the retry delay unless the context ends first.
func waitRetry(ctx *execution.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func updateProgress(ctx *execution.Context, delta progress.Delta) {
	progress.FromContext(ctx).Update(delta)
}
