package gavel

import (
	"context"
	"embed"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"

	"github.com/gavelflow/gavel/llm/llmtest"
	"github.com/gavelflow/gavel/runtime/execution"
)

//go:embed testdata/*.yaml
var embedFS embed.FS

func TestService_EndToEnd(t *testing.T) {
	t.Setenv("COURT_TOPIC", "Napoleon Bonaparte")

	admirer := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": "pos_data", "value": "reformed the legal code"}),
		llmtest.Text("recorded one admirable fact"),
		llmtest.Call("state.append", map[string]interface{}{"key": "pos_data", "value": "founded lasting institutions"}),
		llmtest.Text("recorded another admirable fact"),
	)
	critic := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": "neg_data", "value": "reinstated slavery in the colonies"}),
		llmtest.Text("recorded one damning fact"),
		llmtest.Call("state.append", map[string]interface{}{"key": "neg_data", "value": "endless wars across Europe"}),
		llmtest.Text("recorded another damning fact"),
	)
	judge := llmtest.NewScriptedModel(
		llmtest.Text("the evidence is too thin, continue the investigation"),
		llmtest.Call("control.exitLoop", map[string]interface{}{"reason": "the record is complete"}),
		llmtest.Text("both sides are fully argued"),
	)
	writer := llmtest.NewScriptedModel(
		llmtest.Call("storage.write", map[string]interface{}{
			"location": "verdicts/napoleon.txt",
			"content":  "The court finds the legacy of Napoleon Bonaparte to be profoundly mixed.",
		}),
		llmtest.Text("verdict recorded"),
	)

	srv := New(
		WithTeamBaseURL("embed:///testdata"),
		WithTeamFsOptions(&embedFS),
		WithStorageBaseURL("mem://localhost/gavel"),
		WithModel("admirer_model", admirer),
		WithModel("critic_model", critic),
		WithModel("judge_model", judge),
		WithModel("writer_model", writer),
	)
	rt := srv.Runtime()
	ctx := context.Background()

	team, err := rt.LoadTeam(ctx, "court.yaml")
	if !assert.Nil(t, err) {
		return
	}
	assert.Equal(t, "historical_court", team.Name)

	run, wait, err := rt.StartRun(ctx, team, nil)
	if !assert.Nil(t, err) {
		return
	}
	output, err := wait(5 * time.Second)
	assert.Nil(t, err)
	assert.Equal(t, execution.StateCompleted, output.Status)
	assert.Equal(t, "Napoleon Bonaparte", output.State["TOPIC"])

	// two loop iterations before the judge called for an exit
	assert.Equal(t, []interface{}{"reformed the legal code", "founded lasting institutions"}, output.State["pos_data"])
	assert.Equal(t, []interface{}{"reinstated slavery in the colonies", "endless wars across Europe"}, output.State["neg_data"])
	assert.Equal(t, "both sides are fully argued", output.State["research_notes"])
	assert.Equal(t, 3, judge.Calls())

	data, err := afs.New().DownloadWithURL(ctx, "mem://localhost/gavel/verdicts/napoleon.txt")
	assert.Nil(t, err)
	assert.Contains(t, string(data), "profoundly mixed")

	loaded, err := rt.Run(ctx, run.ID)
	assert.Nil(t, err)
	assert.Equal(t, execution.StateCompleted, loaded.GetStatus())

	runs, err := rt.Runs(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(runs))

	// two iterations of admirer, critic and judge plus the verdict writer
	counters := run.Progress.Snapshot()
	assert.Equal(t, 7, counters.TotalSteps)
	assert.Equal(t, 7, counters.CompletedSteps)
	assert.Equal(t, 0, counters.RunningSteps)
	assert.Equal(t, 0, counters.FailedSteps)
}

func TestService_DefaultTools(t *testing.T) {
	srv := New()
	tools := srv.Runtime().Tools()
	for _, name := range []string{"state", "control", "storage", "research"} {
		assert.NotNil(t, tools.Lookup(name), name)
	}
	assert.Empty(t, srv.Models().Names())
}

func TestRuntime_StartRunValidation(t *testing.T) {
	srv := New()
	rt := srv.Runtime()
	ctx := context.Background()

	_, _, err := rt.StartRun(ctx, nil, nil)
	assert.NotNil(t, err)

	team, err := rt.DecodeYAMLTeam([]byte("name: empty"))
	assert.NotNil(t, err)
	assert.Nil(t, team)
}

func TestConfig_Validate(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())

	invalid := DefaultConfig()
	invalid.Runner.MaxModelAttempts = -1
	assert.NotNil(t, invalid.Validate())

	_, err := NewFromConfig(invalid)
	assert.NotNil(t, err)
}
