package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/llm"
	"github.com/gavelflow/gavel/llm/llmtest"
	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/service/invoker"
	"github.com/gavelflow/gavel/service/tool/control"
	"github.com/gavelflow/gavel/service/tool/state"
	"github.com/stretchr/testify/assert"
)

func newTestRunner(models map[string]llm.Model) (*Runner, *extension.Tools, *llm.Registry) {
	tools := extension.NewTools()
	tools.Register(state.New("pos_data", "neg_data"))
	tools.Register(control.New())

	registry := llm.NewRegistry()
	for name, m := range models {
		registry.Register(name, m)
	}

	config := DefaultConfig()
	config.RetryDelay = time.Millisecond
	return New(tools, invoker.New(tools), registry, config), tools, registry
}

func execute(t *testing.T, r *Runner, tools *extension.Tools, team *model.Team) (*execution.Run, error) {
	run := execution.NewRun("run-1", team, nil)
	ctx := execution.NewContext(context.Background(), run, tools, nil)
	err := r.Run(ctx, run)
	return run, err
}

func TestRunner_Sequence(t *testing.T) {
	first := llmtest.NewScriptedModel(llmtest.Text("alpha"))
	second := llmtest.NewScriptedModel(llmtest.Text("beta"))
	r, tools, _ := newTestRunner(map[string]llm.Model{"first": first, "second": second})

	team := model.NewTeam("seq")
	team.NewNode("one", graph.KindAgent).WithModel("first").WithInstruction("go").WithOutputKey("a")
	team.NewNode("two", graph.KindAgent).WithModel("second").WithInstruction("use { a? }").WithOutputKey("b")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)
	assert.Equal(t, execution.StateCompleted, run.GetStatus())

	a, _ := run.Session.GetString("a")
	b, _ := run.Session.GetString("b")
	assert.Equal(t, "alpha", a)
	assert.Equal(t, "beta", b)
}

func TestRunner_ParallelBarrier(t *testing.T) {
	admirer := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": "pos_data", "value": "glorious"}),
		llmtest.Text("done"),
	)
	critic := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": "neg_data", "value": "burned down"}),
		llmtest.Text("done"),
	)
	after := llmtest.NewScriptedModel(llmtest.Text("reviewed"))
	r, tools, _ := newTestRunner(map[string]llm.Model{"admirer": admirer, "critic": critic, "after": after})

	team := model.NewTeam("par")
	parallel := team.NewNode("investigation", graph.KindParallel)
	agent := parallel.AddNode("admirer", graph.KindAgent)
	agent.WithModel("admirer").WithInstruction("praise").WithTools("state.append")
	agent = parallel.AddNode("critic", graph.KindAgent)
	agent.WithModel("critic").WithInstruction("condemn").WithTools("state.append")
	team.NewNode("judge", graph.KindAgent).WithModel("after").
		WithInstruction("Positive: { pos_data? } Negative: { neg_data? }").WithOutputKey("notes")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)

	// both branch writes are visible after the barrier
	assert.Equal(t, 1, run.Session.Len("pos_data"))
	assert.Equal(t, 1, run.Session.Len("neg_data"))
	notes, _ := run.Session.GetString("notes")
	assert.Equal(t, "reviewed", notes)
}

func TestRunner_ParallelFailureAggregation(t *testing.T) {
	healthy := llmtest.NewScriptedModel(llmtest.Text("fine"))
	broken := llmtest.NewScriptedModel(
		llmtest.Fail(errors.New("model offline")),
		llmtest.Fail(errors.New("model offline")),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"healthy": healthy, "broken": broken})

	team := model.NewTeam("par-fail")
	parallel := team.NewNode("pair", graph.KindParallel)
	parallel.AddNode("ok", graph.KindAgent).WithModel("healthy").WithInstruction("go").WithOutputKey("ok")
	parallel.AddNode("bad", graph.KindAgent).WithModel("broken").WithInstruction("go")

	run, err := execute(t, r, tools, team)
	assert.Error(t, err)
	assert.Equal(t, execution.StateFailed, run.GetStatus())

	// the healthy branch still ran to completion before the barrier released
	ok, _ := run.Session.GetString("ok")
	assert.Equal(t, "fine", ok)
	assert.NotEmpty(t, run.Errors)
}

func TestRunner_LoopExit(t *testing.T) {
	worker := llmtest.NewScriptedModel(
		llmtest.Text("iteration one"),
		llmtest.Call("control.exitLoop", map[string]interface{}{"reason": "enough"}),
		llmtest.Text("iteration two"),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"worker": worker})

	team := model.NewTeam("loop-exit")
	loop := team.NewNode("review", graph.KindLoop).WithMaxIterations(3)
	loop.AddNode("worker", graph.KindAgent).WithModel("worker").
		WithInstruction("work").WithTools("control.exitLoop")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)
	assert.Equal(t, execution.StateCompleted, run.GetStatus())

	// the exit requested in iteration two prevented a third iteration; a
	// third would have exhausted the script and failed the run
	assert.Equal(t, 3, worker.Calls())
	assert.Equal(t, 2, run.StepCount(run.LookupNode("worker").ID))
}

func TestRunner_LoopExhaustion(t *testing.T) {
	worker := llmtest.NewScriptedModel(
		llmtest.Text("one"),
		llmtest.Text("two"),
		llmtest.Text("three"),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"worker": worker})

	team := model.NewTeam("loop-exhaust")
	loop := team.NewNode("review", graph.KindLoop).WithMaxIterations(3)
	loop.AddNode("worker", graph.KindAgent).WithModel("worker").WithInstruction("work")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)
	assert.Equal(t, execution.StateCompleted, run.GetStatus())
	assert.Equal(t, 3, worker.Calls())
}

func TestRunner_RetrySucceeds(t *testing.T) {
	flaky := llmtest.NewScriptedModel(
		llmtest.Fail(errors.New("transient")),
		llmtest.Text("recovered"),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"flaky": flaky})

	team := model.NewTeam("retry")
	team.NewNode("agent", graph.KindAgent).WithModel("flaky").
		WithInstruction("go").WithOutputKey("result")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)
	assert.Equal(t, 2, flaky.Calls())
	result, _ := run.Session.GetString("result")
	assert.Equal(t, "recovered", result)
}

func TestRunner_RetryExhausted(t *testing.T) {
	down := llmtest.NewScriptedModel(
		llmtest.Fail(errors.New("offline")),
		llmtest.Fail(errors.New("offline")),
		llmtest.Fail(errors.New("offline")),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"down": down})

	team := model.NewTeam("retry-exhaust")
	team.NewNode("agent", graph.KindAgent).WithModel("down").WithInstruction("go")

	run, err := execute(t, r, tools, team)
	assert.Error(t, err)
	assert.Equal(t, execution.StateFailed, run.GetStatus())

	// default strategy is two attempts in total
	assert.Equal(t, 2, down.Calls())
}

func TestRunner_RetryNone(t *testing.T) {
	down := llmtest.NewScriptedModel(llmtest.Fail(errors.New("offline")))
	r, tools, _ := newTestRunner(map[string]llm.Model{"down": down})

	team := model.NewTeam("retry-none")
	team.NewNode("agent", graph.KindAgent).WithModel("down").
		WithInstruction("go").WithRetry(&graph.Retry{Type: "none"})

	_, err := execute(t, r, tools, team)
	assert.Error(t, err)
	assert.Equal(t, 1, down.Calls())
}

func TestRunner_UndeclaredToolRejected(t *testing.T) {
	sneaky := llmtest.NewScriptedModel(
		llmtest.Call("state.set", map[string]interface{}{"key": "topic", "value": "rewritten"}),
		llmtest.Text("gave up"),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"sneaky": sneaky})

	team := model.NewTeam("undeclared")
	team.NewNode("agent", graph.KindAgent).WithModel("sneaky").
		WithInstruction("go").WithTools("state.append")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)

	// the call was rejected, so the session never saw the write
	_, exists := run.Session.Get("topic")
	assert.False(t, exists)
}

func TestRunner_AppendEvidenceAccumulates(t *testing.T) {
	worker := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": "pos_data", "value": "first"}),
		llmtest.Text("one"),
		llmtest.Call("state.append", map[string]interface{}{"key": "pos_data", "value": "second"}),
		llmtest.Text("two"),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"worker": worker})

	team := model.NewTeam("accumulate")
	loop := team.NewNode("gather", graph.KindLoop).WithMaxIterations(2)
	loop.AddNode("worker", graph.KindAgent).WithModel("worker").
		WithInstruction("gather").WithTools("state.append")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)

	value, _ := run.Session.Get("pos_data")
	assert.Equal(t, []interface{}{"first", "second"}, value)
}

// slowModel delays every generation to make the join barrier observable.
type slowModel struct {
	delay time.Duration
	model llm.Model
}

func (m *slowModel) Generate(ctx context.Context, request *llm.GenerateRequest) (*llm.Message, error) {
	time.Sleep(m.delay)
	return m.model.Generate(ctx, request)
}

func TestRunner_ParallelWaitsForSlowestBranch(t *testing.T) {
	delay := 30 * time.Millisecond
	slow := &slowModel{delay: delay, model: llmtest.NewScriptedModel(llmtest.Text("slow done"))}
	fast := llmtest.NewScriptedModel(llmtest.Text("fast done"))
	r, tools, _ := newTestRunner(map[string]llm.Model{"slow": slow, "fast": fast})

	team := model.NewTeam("slow-par")
	parallel := team.NewNode("pair", graph.KindParallel)
	parallel.AddNode("slow", graph.KindAgent).WithModel("slow").WithInstruction("go").WithOutputKey("slow")
	parallel.AddNode("fast", graph.KindAgent).WithModel("fast").WithInstruction("go").WithOutputKey("fast")

	started := time.Now()
	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), delay)

	slowOut, _ := run.Session.GetString("slow")
	fastOut, _ := run.Session.GetString("fast")
	assert.Equal(t, "slow done", slowOut)
	assert.Equal(t, "fast done", fastOut)
}

func TestRunner_ToolFailureNarratedNotFatal(t *testing.T) {
	clumsy := llmtest.NewScriptedModel(
		llmtest.Call("state.set", map[string]interface{}{"key": "pos_data", "value": "overwrite attempt"}),
		llmtest.Text("the record could not be amended"),
	)
	r, tools, _ := newTestRunner(map[string]llm.Model{"clumsy": clumsy})

	team := model.NewTeam("tool-failure")
	team.NewNode("agent", graph.KindAgent).WithModel("clumsy").
		WithInstruction("go").WithTools("state.set").WithOutputKey("outcome")

	run, err := execute(t, r, tools, team)
	assert.NoError(t, err)
	assert.Equal(t, execution.StateCompleted, run.GetStatus())

	// the append-only rejection reached the model as an error result and the
	// agent narrated it instead of failing the run
	outcome, _ := run.Session.GetString("outcome")
	assert.Equal(t, "the record could not be amended", outcome)
	_, exists := run.Session.Get("pos_data")
	assert.False(t, exists)
	assert.Equal(t, 2, clumsy.Calls())
}

type tenantKey string

// tenantReadingModel resolves a caller-supplied context key during
// generation, exercising value lookups that fall outside the typed run keys.
type tenantReadingModel struct {
	tenant string
	model  llm.Model
}

func (m *tenantReadingModel) Generate(ctx context.Context, request *llm.GenerateRequest) (*llm.Message, error) {
	if value, ok := ctx.Value(tenantKey("tenant")).(string); ok {
		m.tenant = value
	}
	return m.model.Generate(ctx, request)
}

func TestRunner_StepContextResolvesCallerValues(t *testing.T) {
	reader := &tenantReadingModel{model: llmtest.NewScriptedModel(llmtest.Text("done"))}
	r, tools, _ := newTestRunner(map[string]llm.Model{"reader": reader})

	team := model.NewTeam("ctx-values")
	team.NewNode("agent", graph.KindAgent).WithModel("reader").WithInstruction("go")

	base := context.WithValue(context.Background(), tenantKey("tenant"), "acme")
	run := execution.NewRun("run-ctx", team, nil)
	ctx := execution.NewContext(base, run, tools, nil)
	err := r.Run(ctx, run)

	assert.NoError(t, err)
	assert.Equal(t, execution.StateCompleted, run.GetStatus())
	assert.Equal(t, "acme", reader.tenant)
}
