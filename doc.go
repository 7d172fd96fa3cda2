// Package gavel provides a hierarchical multi-agent orchestration engine.
//
// Teams of agents are defined declaratively (for example in YAML) as a tree
// of composite nodes - sequences, parallel groups and bounded loops - with
// leaf agents that converse with a language model and act through registered
// tool services. The engine comes with pluggable service layers such as:
//
//   - runtime/runner - recursive execution of the agent tree
//   - service/invoker - tool dispatch with policy enforcement
//   - service/tool    - built-in state, control, storage and research tools
//   - llm             - model abstraction with a Gemini client
//
// Gavel is designed to be embedded in host applications. End-users typically
// interact with the engine via the high-level Service facade exposed by the
// root package:
//
//	srv := gavel.New(gavel.WithModel("gemini-2.0-flash", client))
//	rt := srv.Runtime()
//	team, _ := rt.LoadTeam(ctx, "team.yaml")
//	_, wait, _ := rt.StartRun(ctx, team, map[string]interface{}{"TOPIC": "Napoleon"})
//	out, _ := wait(time.Minute)
//
// For more details see the README and individual sub-packages.
package gavel
