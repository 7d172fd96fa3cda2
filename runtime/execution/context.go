package execution

import (
	"context"
	"reflect"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/service/event"
)

// Context carries the run-scoped handles capability services reach for:
// the run, the current step and node, the tool registry, the event service
// and the loop control of the innermost enclosing loop.
type Context struct {
	run         *Run
	step        *Step
	node        *graph.Node
	tools       *extension.Tools
	events      *event.Service
	loopControl *LoopControl
	context.Context
}

var RunKey = KeyOf[*Run]()
var StepKey = KeyOf[*Step]()
var NodeKey = KeyOf[*graph.Node]()
var toolsKey = KeyOf[*extension.Tools]()
var EventKey = KeyOf[*event.Service]()
var LoopControlKey = KeyOf[*LoopControl]()
var ContextKey = KeyOf[*Context]()

// StepContext returns a child context scoped to the supplied step and node.
func (c *Context) StepContext(step *Step, node *graph.Node) *Context {
	clone := *c
	clone.step = step
	clone.node = node
	return &clone
}

// LoopContext returns a child context carrying the supplied loop control.
// Nested loops shadow the outer control, so an exit request only terminates
// the innermost loop.
func (c *Context) LoopContext(control *LoopControl) *Context {
	clone := *c
	clone.loopControl = control
	return &clone
}

func (c *Context) Value(key any) any {
	switch key {
	case RunKey:
		return c.run
	case StepKey:
		return c.step
	case NodeKey:
		return c.node
	case toolsKey:
		return c.tools
	case EventKey:
		return c.events
	case LoopControlKey:
		return c.loopControl
	case ContextKey:
		return c
	}
	return c.Context.Value(key)
}

// ContextValue returns the value of the provided type from the context
func ContextValue[T any](ctx context.Context) T {
	key := KeyOf[T]()
	if value := ctx.Value(key); value != nil {
		return value.(T)
	}
	var t T
	return t
}

// KeyOf returns the reflect.Type of the provided type
func KeyOf[T any]() reflect.Type {
	var a T
	return reflect.TypeOf(a)
}

// NewContext creates a run context over the supplied parent context.
func NewContext(ctx context.Context, run *Run, tools *extension.Tools, events *event.Service) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Context: ctx,
		run:     run,
		tools:   tools,
		events:  events,
	}
}
