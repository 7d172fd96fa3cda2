package court_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/gavelflow/gavel"
	"github.com/gavelflow/gavel/court"
	"github.com/gavelflow/gavel/llm/llmtest"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/runtime/execution"
)

func TestBuildTeam(t *testing.T) {
	team := court.BuildTeam("Genghis Khan", "gemini-2.0-flash")
	assert.Equal(t, "historical_court", team.Name)
	assert.Empty(t, team.Validate())

	nodes := team.AllNodes()
	assert.Equal(t, graph.KindLoop, nodes["trial_and_review"].Kind)
	assert.Equal(t, court.MaxTrialRounds, nodes["trial_and_review"].MaxIterations)
	assert.Equal(t, graph.KindParallel, nodes["investigation_team"].Kind)
	assert.Equal(t, []string{"research.search", "state.append"}, nodes["admirer"].Tools)
	assert.Equal(t, court.ResearchNotesKey, nodes["judge"].OutputKey)
	assert.Equal(t, []string{"storage.write"}, nodes["verdict_writer"].Tools)
	assert.Equal(t, "gemini-2.0-flash", nodes["critic"].Model)
}

func TestVerdictLocation(t *testing.T) {
	assert.Equal(t, "verdicts/Napoleon Bonaparte.txt", court.VerdictLocation("Napoleon Bonaparte"))
	assert.Equal(t, "verdicts/Henry VIII.txt", court.VerdictLocation("  Henry VIII "))
	assert.Equal(t, "verdicts/a_b.txt", court.VerdictLocation("a/b"))
	assert.Equal(t, "verdicts/unnamed.txt", court.VerdictLocation(""))
}

func TestCourt_Verdict(t *testing.T) {
	topic := "Caligula"
	location := court.VerdictLocation(topic)

	admirer := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": court.PosDataKey, "value": "funded grand public games"}),
		llmtest.Text("one admirable fact recorded"),
	)
	critic := llmtest.NewScriptedModel(
		llmtest.Call("state.append", map[string]interface{}{"key": court.NegDataKey, "value": "squandered the treasury on excess"}),
		llmtest.Text("one damning fact recorded"),
	)
	judge := llmtest.NewScriptedModel(
		llmtest.Call("control.exitLoop", map[string]interface{}{"reason": "the record suffices"}),
		llmtest.Text("a single round settled the record"),
	)
	writer := llmtest.NewScriptedModel(
		llmtest.Call("storage.write", map[string]interface{}{
			"location": location,
			"content":  "The court finds Caligula guilty of excess and acquitted of dullness.",
		}),
		llmtest.Text("verdict recorded"),
	)

	team := court.BuildTeam(topic, "court_model")
	nodes := team.AllNodes()
	nodes["admirer"].Model = "admirer_model"
	nodes["critic"].Model = "critic_model"
	nodes["judge"].Model = "judge_model"
	nodes["verdict_writer"].Model = "writer_model"

	srv := gavel.New(
		gavel.WithStorageBaseURL("mem://localhost/court"),
		gavel.WithModel("admirer_model", admirer),
		gavel.WithModel("critic_model", critic),
		gavel.WithModel("judge_model", judge),
		gavel.WithModel("writer_model", writer),
	)
	ctx := context.Background()
	_, wait, err := srv.Runtime().StartRun(ctx, team, nil)
	if !assert.Nil(t, err) {
		return
	}
	output, err := wait(5 * time.Second)
	assert.Nil(t, err)
	assert.Equal(t, execution.StateCompleted, output.Status)
	assert.Equal(t, []interface{}{"funded grand public games"}, output.State[court.PosDataKey])
	assert.Equal(t, "a single round settled the record", output.State[court.ResearchNotesKey])

	data, err := afs.New().DownloadWithURL(ctx, "mem://localhost/court/"+location)
	assert.Nil(t, err)
	assert.Contains(t, string(data), "guilty of excess")
}

func TestCourt_FailedRunWritesNoVerdict(t *testing.T) {
	topic := "Atlantis"
	down := errors.New("model unavailable")
	broken := llmtest.NewScriptedModel(
		llmtest.Fail(down), llmtest.Fail(down), llmtest.Fail(down), llmtest.Fail(down))

	team := court.BuildTeam(topic, "broken_model")
	srv := gavel.New(
		gavel.WithStorageBaseURL("mem://localhost/failed-court"),
		gavel.WithModel("broken_model", broken),
	)
	ctx := context.Background()
	_, wait, err := srv.Runtime().StartRun(ctx, team, nil)
	if !assert.Nil(t, err) {
		return
	}
	output, err := wait(5 * time.Second)
	assert.Nil(t, err)
	assert.Equal(t, execution.StateFailed, output.Status)
	assert.NotEmpty(t, output.Errors)

	// both investigators share the model and each gets exactly two attempts
	assert.Equal(t, 4, broken.Calls())

	ok, _ := afs.New().Exists(ctx, "mem://localhost/failed-court/"+court.VerdictLocation(topic))
	assert.False(t, ok)
}
