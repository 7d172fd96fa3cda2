// Package court assembles the historical-court agent team: two opposed
// investigators gather evidence about a topic in parallel, a judge reviews
// the record over a bounded number of rounds and a clerk writes the final
// verdict to durable storage.
package court

import (
	"strings"

	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/model/graph"
)

// Session keys the court agents share.
const (
	TopicKey         = "TOPIC"
	PosDataKey       = "pos_data"
	NegDataKey       = "neg_data"
	ResearchNotesKey = "research_notes"
)

// MaxTrialRounds bounds the investigation loop.
const MaxTrialRounds = 3

const admirerInstruction = `You admire the subject of this trial.
Research { TOPIC } and record exactly one new admirable fact under pos_data
using state.append. Keep the fact short and concrete.
Judge's notes so far: { research_notes? }`

const criticInstruction = `You are the harshest critic of the subject of this trial.
Research { TOPIC } and record exactly one new damning fact under neg_data
using state.append. Keep the fact short and concrete.
Judge's notes so far: { research_notes? }`

const judgeInstruction = `You preside over the trial of { TOPIC }.
Evidence for: { pos_data? }
Evidence against: { neg_data? }
When both sides are sufficiently argued call control.exitLoop, otherwise let
the investigation continue. Summarise the state of the record either way.`

const writerInstruction = `Write the final verdict for the trial of { TOPIC }.
Judge's notes: { research_notes? }
Evidence for: { pos_data? }
Evidence against: { neg_data? }
Save the full verdict with storage.write under { verdict_location? } and keep
it balanced.`

// BuildTeam assembles the historical-court team for the given topic. Every
// agent uses the supplied model name; callers needing per-agent models can
// rewire individual nodes through Team.AllNodes.
func BuildTeam(topic, modelName string) *model.Team {
	team := model.NewTeam("historical_court").
		WithDescription("Puts a historical topic on trial and renders a verdict").
		WithInit(TopicKey, topic).
		WithInit("verdict_location", VerdictLocation(topic))
	team.Root.Name = "court_pipeline"
	team.Root.ID = "court_pipeline"

	trial := team.NewNode("trial_and_review", graph.KindLoop).
		WithMaxIterations(MaxTrialRounds)

	investigation := trial.AddNode("investigation_team", graph.KindParallel)
	investigation.AddNode("admirer", graph.KindAgent).
		WithModel(modelName).
		WithInstruction(admirerInstruction).
		WithTools("research.search", "state.append")
	investigation.AddNode("critic", graph.KindAgent).
		WithModel(modelName).
		WithInstruction(criticInstruction).
		WithTools("research.search", "state.append")

	trial.AddNode("judge", graph.KindAgent).
		WithModel(modelName).
		WithInstruction(judgeInstruction).
		WithOutputKey(ResearchNotesKey).
		WithTools("control.exitLoop")

	team.NewNode("verdict_writer", graph.KindAgent).
		WithModel(modelName).
		WithInstruction(writerInstruction).
		WithTools("storage.write")
	return team
}

// VerdictLocation returns the storage location of the verdict report for the
// given topic, for example "verdicts/Napoleon Bonaparte.txt". The topic is
// used verbatim apart from path separators.
func VerdictLocation(topic string) string {
	name := strings.TrimSpace(topic)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "unnamed"
	}
	return "verdicts/" + name + ".txt"
}
