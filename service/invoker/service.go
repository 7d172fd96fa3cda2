package invoker

// Package invoker dispatches capability calls issued by agents. It resolves
// a fully qualified "service.method" reference against the tool registry,
// binds the loosely typed call arguments onto the method input struct,
// applies the invocation policy and runs the method.

import (
	"context"
	"fmt"
	"log"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gavelflow/gavel/extension"
	"github.com/gavelflow/gavel/model/types"
	"github.com/gavelflow/gavel/policy"
	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/service/event"
	"github.com/viant/structology/conv"
)

// Invocation records a single capability call and its outcome.
type Invocation struct {
	RunID     string      `json:"runID,omitempty"`
	StepID    string      `json:"stepID,omitempty"`
	Tool      string      `json:"tool"`
	Input     interface{} `json:"input,omitempty"`
	Output    interface{} `json:"output,omitempty"`
	Error     string      `json:"error,omitempty"`
	StartedAt time.Time   `json:"startedAt"`
	Elapsed   string      `json:"elapsed,omitempty"`
}

// Listener is invoked after every capability call, successful or not.
type Listener func(invocation *Invocation)

// Service dispatches capability calls.
type Service interface {
	Invoke(ctx context.Context, tool string, args map[string]interface{}) (interface{}, error)
}

type service struct {
	tools    *extension.Tools
	listener Listener

	// the converter caches struct metadata without synchronisation, so
	// concurrent tool calls from parallel branches must serialise on it
	converter *conv.Converter
	convMux   sync.Mutex
}

// Option customises the invoker instance.
type Option func(*service)

// WithListener attaches a post-invocation callback.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// Invoke resolves and runs a capability. Policy rejections and unknown
// references are returned as errors; the caller decides whether to surface
// them to the reasoning model or fail the run.
func (s *service) Invoke(ctx context.Context, tool string, args map[string]interface{}) (interface{}, error) {
	serviceName, methodName, err := Split(tool)
	if err != nil {
		return nil, err
	}

	if pol := policy.FromContext(ctx); pol != nil {
		if !pol.IsAllowed(tool) {
			return nil, fmt.Errorf("tool %v blocked by policy", tool)
		}
		if pol.Mode == policy.ModeDeny {
			return nil, fmt.Errorf("tool %v denied by policy", tool)
		}
		if pol.Mode == policy.ModeAsk && pol.Ask != nil {
			if !pol.Ask(ctx, tool, args, pol) {
				return nil, fmt.Errorf("tool %v rejected", tool)
			}
		}
	}

	toolService := s.tools.Lookup(serviceName)
	if toolService == nil {
		return nil, fmt.Errorf("service %v not found", serviceName)
	}
	signature := toolService.Methods().Lookup(methodName)
	if signature == nil {
		return nil, types.NewMethodNotFoundError(methodName)
	}
	method, err := toolService.Method(methodName)
	if err != nil {
		return nil, fmt.Errorf("failed to find method %v for service %v: %w", methodName, serviceName, err)
	}

	input, err := s.typedValue(signature.Input, args)
	if err != nil {
		return nil, fmt.Errorf("invalid input for %v: %w", tool, err)
	}
	output, err := s.typedValue(signature.Output, map[string]interface{}{})
	if err != nil {
		return nil, err
	}

	invocation := &Invocation{Tool: tool, Input: input, StartedAt: time.Now()}
	if step := execution.ContextValue[*execution.Step](ctx); step != nil {
		invocation.RunID = step.RunID
		invocation.StepID = step.ID
	}

	err = method(ctx, input, output)
	invocation.Elapsed = time.Since(invocation.StartedAt).String()
	if err != nil {
		invocation.Error = err.Error()
	} else {
		invocation.Output = output
	}

	if s.listener != nil {
		s.listener(invocation)
	}
	s.publish(ctx, invocation)
	if err != nil {
		return nil, err
	}
	return output, nil
}

func (s *service) publish(ctx context.Context, invocation *Invocation) {
	events := execution.ContextValue[*event.Service](ctx)
	if events == nil {
		return
	}
	publisher, err := event.PublisherOf[*Invocation](events)
	if err != nil {
		return
	}
	eventType := "invoked"
	if invocation.Error != "" {
		eventType = "invocationFailed"
	}
	serviceName, methodName, _ := Split(invocation.Tool)
	eCtx := &event.Context{
		RunID:     invocation.RunID,
		StepID:    invocation.StepID,
		EventType: eventType,
		Service:   serviceName,
		Method:    methodName,
	}
	if err = publisher.Publish(ctx, event.NewEvent(eCtx, invocation)); err != nil {
		log.Printf("failed to publish invocation event: %v", err)
	}
}

func (s *service) typedValue(aType reflect.Type, value interface{}) (interface{}, error) {
	if aType == nil {
		return nil, nil
	}
	if aType.Kind() == reflect.Ptr {
		aType = aType.Elem()
	}
	instance := reflect.New(aType).Interface()
	s.convMux.Lock()
	err := s.converter.Convert(value, instance)
	s.convMux.Unlock()
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Split breaks a fully qualified tool reference into service and method.
func Split(tool string) (string, string, error) {
	idx := strings.LastIndex(tool, ".")
	if idx <= 0 || idx == len(tool)-1 {
		return "", "", fmt.Errorf("malformed tool reference %q, expected service.method", tool)
	}
	return tool[:idx], tool[idx+1:], nil
}

// New creates an invoker over the supplied tool registry.
func New(tools *extension.Tools, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &service{
		tools:     tools,
		converter: conv.NewConverter(options),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
