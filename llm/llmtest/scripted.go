// Package llmtest provides deterministic model doubles for runner tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/gavelflow/gavel/llm"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Message llm.Message
	Err     error
}

// ScriptedModel replays a fixed sequence of responses. It is safe for
// concurrent use; parallel agents sharing one script consume turns in
// arrival order.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	calls     int
	responses []Response
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{responses: cloned}
}

var _ llm.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) Generate(_ context.Context, _ *llm.GenerateRequest) (*llm.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.index >= len(m.responses) {
		return nil, fmt.Errorf("script exhausted at turn %d", m.index+1)
	}
	current := m.responses[m.index]
	m.index++
	if current.Err != nil {
		return nil, current.Err
	}
	msg := llm.CloneMessage(current.Message)
	if msg.Role == "" {
		msg.Role = llm.RoleAssistant
	}
	return &msg, nil
}

// Calls returns how many Generate invocations the model has served,
// including failed turns.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Text is a convenience for a plain assistant turn.
func Text(content string) Response {
	return Response{Message: llm.Message{Role: llm.RoleAssistant, Content: content}}
}

// Call is a convenience for an assistant turn that invokes a tool.
func Call(tool string, args map[string]interface{}) Response {
	return Response{Message: llm.Message{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{ID: tool, Name: tool, Arguments: args}},
	}}
}

// Fail is a convenience for a failing model turn.
func Fail(err error) Response {
	return Response{Err: err}
}
