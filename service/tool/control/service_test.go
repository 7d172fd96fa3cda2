package control

import (
	"context"
	"testing"

	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/stretchr/testify/assert"
)

func TestService_ExitLoop(t *testing.T) {
	srv := New()
	team := model.NewTeam("test")
	run := execution.NewRun("run-1", team, nil)
	runCtx := execution.NewContext(context.Background(), run, nil, nil)

	control := &execution.LoopControl{}
	ctx := runCtx.LoopContext(control)

	output := &ExitLoopOutput{}
	err := srv.ExitLoop(ctx, &ExitLoopInput{Reason: "verdict reached"}, output)
	assert.NoError(t, err)
	assert.True(t, output.Exiting)
	assert.True(t, control.Requested())
}

func TestService_ExitLoopOutsideLoop(t *testing.T) {
	srv := New()
	team := model.NewTeam("test")
	run := execution.NewRun("run-1", team, nil)
	ctx := execution.NewContext(context.Background(), run, nil, nil)

	output := &ExitLoopOutput{}
	err := srv.ExitLoop(ctx, &ExitLoopInput{}, output)
	assert.NoError(t, err)
	assert.False(t, output.Exiting)
}

func TestService_InnermostLoopOnly(t *testing.T) {
	srv := New()
	team := model.NewTeam("test")
	run := execution.NewRun("run-1", team, nil)
	runCtx := execution.NewContext(context.Background(), run, nil, nil)

	outer := &execution.LoopControl{}
	inner := &execution.LoopControl{}
	ctx := runCtx.LoopContext(outer).LoopContext(inner)

	err := srv.ExitLoop(ctx, &ExitLoopInput{}, &ExitLoopOutput{})
	assert.NoError(t, err)
	assert.True(t, inner.Requested())
	assert.False(t, outer.Requested())
}
