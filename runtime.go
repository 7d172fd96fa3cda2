package gavel

import (
	"context"
	"fmt"
	"time"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/internal/clock"
	"github.com/gavelflow/gavel/internal/idgen"
	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/progress"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/runtime/runner"
	"github.com/gavelflow/gavel/service/dao"
	"github.com/gavelflow/gavel/service/dao/team"
	"github.com/gavelflow/gavel/service/event"
)

// pollInterval paces the Wait loop while a run is in flight.
const pollInterval = 20 * time.Millisecond

// Runtime represents the agent team engine runtime
type Runtime struct {
	teamDAO *team.Service
	runDAO  dao.Service[string, execution.Run]
	runner  *runner.Runner
	tools   *extension.Tools
	events  *event.Service
}

// LoadTeam loads a team definition
func (r *Runtime) LoadTeam(ctx context.Context, location string) (*model.Team, error) {
	return r.teamDAO.Load(ctx, location)
}

// DecodeYAMLTeam decodes a team definition
func (r *Runtime) DecodeYAMLTeam(data []byte) (*model.Team, error) {
	return r.teamDAO.DecodeYAML(data)
}

// Tools returns the tool registry.
func (r *Runtime) Tools() *extension.Tools {
	return r.tools
}

// StartRun starts a new run of the supplied team. The run executes
// asynchronously; the returned wait function blocks until the run reaches a
// terminal status or the timeout elapses.
func (r *Runtime) StartRun(ctx context.Context, aTeam *model.Team, initialState map[string]interface{}) (*execution.Run, execution.Wait, error) {
	if aTeam == nil {
		return nil, nil, fmt.Errorf("team was nil")
	}
	if aTeam.Root == nil {
		return nil, nil, fmt.Errorf("team %q has no root node", aTeam.Name)
	}
	run := execution.NewRun(idgen.New(), aTeam, initialState)
	if err := r.runDAO.Save(ctx, run); err != nil {
		return nil, nil, err
	}
	tracker := progress.FromContext(ctx)
	if tracker == nil {
		tracker = &progress.Progress{RunID: run.ID, Team: aTeam.Name, StartedAt: run.CreatedAt}
		ctx = progress.WithProgress(ctx, tracker)
	}
	run.Progress = tracker
	execCtx := execution.NewContext(ctx, run, r.tools, r.events)
	go func() {
		_ = r.runner.Run(execCtx, run)
	}()
	wait := func(timeout time.Duration) (*execution.RunOutput, error) {
		return r.waitForRun(run, timeout)
	}
	return run, wait, nil
}

func (r *Runtime) waitForRun(run *execution.Run, timeout time.Duration) (*execution.RunOutput, error) {
	deadline := clock.Now().Add(timeout)
	for {
		switch run.GetStatus() {
		case execution.StateCompleted, execution.StateFailed:
			return run.Output(), nil
		}
		if clock.Now().After(deadline) {
			output := run.Output()
			output.Timeout = true
			return output, fmt.Errorf("timeout waiting for run %q", run.ID)
		}
		time.Sleep(pollInterval)
	}
}

// Run returns a run by ID
func (r *Runtime) Run(ctx context.Context, id string) (*execution.Run, error) {
	return r.runDAO.Load(ctx, id)
}

// Runs returns runs matching the supplied parameters
func (r *Runtime) Runs(ctx context.Context, parameter ...*dao.Parameter) ([]*execution.Run, error) {
	return r.runDAO.List(ctx, parameter...)
}

// RunFromContext returns the run carried by the context, if any.
func (r *Runtime) RunFromContext(ctx context.Context) *execution.Run {
	return execution.ContextValue[*execution.Run](ctx)
}
