package invoker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/policy"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/service/tool/state"
	"github.com/stretchr/testify/assert"
)

func newTestContext(tools *extension.Tools) context.Context {
	team := model.NewTeam("test")
	run := execution.NewRun("run-1", team, nil)
	return execution.NewContext(context.Background(), run, tools, nil)
}

func TestService_Invoke(t *testing.T) {
	tools := extension.NewTools()
	tools.Register(state.New())
	ctx := newTestContext(tools)

	var invocations []*Invocation
	srv := New(tools, WithListener(func(invocation *Invocation) {
		invocations = append(invocations, invocation)
	}))

	output, err := srv.Invoke(ctx, "state.append", map[string]interface{}{
		"key":   "pos_data",
		"value": "a fact",
	})
	assert.NoError(t, err)
	appendOutput, ok := output.(*state.AppendOutput)
	if assert.True(t, ok) {
		assert.Equal(t, 1, appendOutput.Size)
	}
	assert.Len(t, invocations, 1)
	assert.Equal(t, "state.append", invocations[0].Tool)
}

func TestService_InvokeErrors(t *testing.T) {
	tools := extension.NewTools()
	tools.Register(state.New())
	srv := New(tools)
	ctx := newTestContext(tools)

	_, err := srv.Invoke(ctx, "missing.method", map[string]interface{}{})
	assert.Error(t, err)

	_, err = srv.Invoke(ctx, "state.unknown", map[string]interface{}{})
	assert.Error(t, err)

	_, err = srv.Invoke(ctx, "malformed", map[string]interface{}{})
	assert.Error(t, err)
}

func TestService_InvokePolicy(t *testing.T) {
	tools := extension.NewTools()
	tools.Register(state.New())
	srv := New(tools)
	ctx := newTestContext(tools)

	blocked := policy.WithPolicy(ctx, &policy.Policy{BlockList: []string{"state.append"}})
	_, err := srv.Invoke(blocked, "state.append", map[string]interface{}{"key": "k", "value": "v"})
	assert.Error(t, err)

	denied := policy.WithPolicy(ctx, &policy.Policy{Mode: policy.ModeDeny})
	_, err = srv.Invoke(denied, "state.set", map[string]interface{}{"key": "k", "value": "v"})
	assert.Error(t, err)

	allowed := policy.WithPolicy(ctx, &policy.Policy{AllowList: []string{"state.set"}})
	_, err = srv.Invoke(allowed, "state.set", map[string]interface{}{"key": "k", "value": "v"})
	assert.NoError(t, err)
}

func TestService_InvokeConcurrent(t *testing.T) {
	tools := extension.NewTools()
	tools.Register(state.New())
	srv := New(tools)
	ctx := newTestContext(tools)

	// concurrent branches share one invoker; argument binding must hold up
	// under the race detector
	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "pos_data"
			if i%2 == 1 {
				key = "neg_data"
			}
			_, errs[i] = srv.Invoke(ctx, "state.append", map[string]interface{}{
				"key":   key,
				"value": fmt.Sprintf("fact %d", i),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, i)
	}
	run := execution.ContextValue[*execution.Run](ctx)
	assert.Equal(t, workers/2, run.Session.Len("pos_data"))
	assert.Equal(t, workers/2, run.Session.Len("neg_data"))
}
