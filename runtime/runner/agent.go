package runner

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/gavelflow/gavel/internal/idgen"
	"github.com/gavelflow/gavel/llm"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/progress"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/tracing"
)

// runAgent performs one leaf agent step: render the instruction against the
// current session state, drive the model through tool-call rounds and store
// the final text under the output key when configured. Failed model calls
// are retried per the node retry strategy; each retry renders and converses
// from scratch.
func (r *Runner) runAgent(ctx *execution.Context, run *execution.Run, node *graph.Node) error {
	step := execution.NewStep(idgen.New(), run.ID, node.ID, node.Name, string(node.Kind))
	run.AddStep(step)
	stepCtx := ctx.StepContext(step, node)
	updateProgress(stepCtx, progress.Delta{Total: 1, Running: 1})

	spanCtx, span := tracing.StartSpan(ctx, "agent "+node.Name, "INTERNAL")
	span.WithAttributes(map[string]string{"run.id": run.ID, "node.id": node.ID})
	step.Span = span
	stepCtx.Context = spanCtx

	model, err := r.models.Lookup(node.Model)
	if err != nil {
		step.Fail(err)
		run.RecordError(node.ID, err)
		updateProgress(stepCtx, progress.Delta{Failed: 1, Running: -1})
		tracing.EndSpan(span, err)
		return err
	}

	var finalText string
	attempts := 0
	for {
		attempts++
		step.Attempts = attempts
		finalText, err = r.converse(stepCtx, run, node, model)
		if err == nil {
			break
		}
		retry, delay := r.shouldRetry(node.Retry, attempts)
		if !retry {
			break
		}
		if waitErr := waitRetry(stepCtx, delay); waitErr != nil {
			err = waitErr
			break
		}
	}

	if err != nil {
		step.Fail(err)
		run.RecordError(node.ID, err)
		updateProgress(stepCtx, progress.Delta{Failed: 1, Running: -1})
		tracing.EndSpan(span, err)
		return fmt.Errorf("agent %s failed: %w", node.Name, err)
	}

	if node.OutputKey != "" {
		run.Session.Set(node.OutputKey, finalText)
	}
	step.Complete()
	updateProgress(stepCtx, progress.Delta{Completed: 1, Running: -1})
	tracing.EndSpan(span, nil)
	return nil
}

// converse drives a single model attempt through bounded tool-call rounds.
// Capability failures are surfaced back to the model as tool results rather
// than failing the attempt.
func (r *Runner) converse(ctx *execution.Context, run *execution.Run, node *graph.Node, model llm.Model) (string, error) {
	instruction := run.Session.Render(node.Instruction)

	messages := make([]llm.Message, 0, 2)
	if node.Description != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: node.Description})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: instruction})
	toolDefs := r.toolDefinitions(node)

	for turn := 0; turn < r.config.MaxToolTurns; turn++ {
		response, err := model.Generate(ctx, &llm.GenerateRequest{Messages: messages, Tools: toolDefs})
		if err != nil {
			return "", err
		}
		if len(response.ToolCalls) == 0 {
			return response.Content, nil
		}

		messages = append(messages, *response)
		for _, call := range response.ToolCalls {
			result := r.dispatch(ctx, node, call)
			messages = append(messages, llm.ToolResultMessage(result))
		}
	}
	return "", fmt.Errorf("agent %s exceeded %d tool turns", node.Name, r.config.MaxToolTurns)
}

// dispatch runs one tool call, enforcing the node's declared tool list.
func (r *Runner) dispatch(ctx *execution.Context, node *graph.Node, call llm.ToolCall) llm.ToolResult {
	result := llm.ToolResult{CallID: call.ID, Name: call.Name}
	if !hasTool(node, call.Name) {
		result.IsError = true
		result.Content = fmt.Sprintf("tool %s is not available to agent %s", call.Name, node.Name)
		return result
	}
	output, err := r.invoker.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		result.IsError = true
		result.Content = err.Error()
		return result
	}
	encoded, err := json.Marshal(output)
	if err != nil {
		result.Content = fmt.Sprintf("%v", output)
		return result
	}
	result.Content = string(encoded)
	return result
}

func hasTool(node *graph.Node, name string) bool {
	for _, tool := range node.Tools {
		if tool == name {
			return true
		}
	}
	return false
}

// toolDefinitions resolves the node's tool references into definitions the
// model can call; unknown references are skipped, the invoker reports them
// if the model still calls one.
func (r *Runner) toolDefinitions(node *graph.Node) []llm.ToolDefinition {
	var defs []llm.ToolDefinition
	for _, ref := range node.Tools {
		def := llm.ToolDefinition{Name: ref}
		idx := strings.LastIndex(ref, ".")
		if idx > 0 && r.tools != nil {
			if service := r.tools.Lookup(ref[:idx]); service != nil {
				if signature := service.Methods().Lookup(ref[idx+1:]); signature != nil {
					def.Description = signature.Description
					def.InputSchema = inputSchema(signature.Input)
				}
			}
		}
		defs = append(defs, def)
	}
	return defs
}

// inputSchema derives a JSON schema object from a tool input struct using
// its json and description tags.
func inputSchema(rType reflect.Type) map[string]interface{} {
	if rType == nil {
		return nil
	}
	if rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	if rType.Kind() != reflect.Struct {
		return nil
	}
	properties := map[string]interface{}{}
	var required []string
	for i := 0; i < rType.NumField(); i++ {
		field := rType.Field(i)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			name = strings.Split(tag, ",")[0]
			if name == "-" {
				continue
			}
		}
		property := map[string]interface{}{"type": schemaType(field.Type)}
		if description := field.Tag.Get("description"); description != "" {
			property["description"] = description
		}
		properties[name] = property
		if field.Tag.Get("required") == "true" {
			required = append(required, name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func schemaType(rType reflect.Type) string {
	switch rType.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "object"
	}
}
