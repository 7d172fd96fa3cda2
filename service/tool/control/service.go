package control

import (
	"context"
	"reflect"
	"strings"

	"github.com/gavelflow/gavel/model/types"
	"github.com/gavelflow/gavel/runtime/execution"
)

const name = "control"

// Service exposes flow control capabilities to agents. Exit requests are
// delivered through the loop control carried in the run context, so an
// agent never touches the runner directly.
type Service struct{}

// New creates a control service
func New() *Service {
	return &Service{}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "exitLoop",
			Description: "Requests termination of the enclosing loop once the current iteration completes",
			Input:       reflect.TypeOf(&ExitLoopInput{}),
			Output:      reflect.TypeOf(&ExitLoopOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "exitloop":
		return s.exitLoop, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

// ExitLoopInput defines parameters for requesting loop termination
type ExitLoopInput struct {
	Reason string `json:"reason,omitempty" description:"Why the loop should terminate"`
}

// ExitLoopOutput reports whether an enclosing loop accepted the request
type ExitLoopOutput struct {
	Exiting bool   `json:"exiting"`
	Message string `json:"message,omitempty"`
}

// ExitLoop marks the innermost enclosing loop for termination. The current
// iteration still runs to completion; outside a loop the request is a no-op.
func (s *Service) ExitLoop(ctx context.Context, input *ExitLoopInput, output *ExitLoopOutput) error {
	control := execution.ContextValue[*execution.LoopControl](ctx)
	if control == nil {
		output.Exiting = false
		output.Message = "no enclosing loop"
		return nil
	}
	control.RequestExit()
	output.Exiting = true
	output.Message = "loop will terminate after the current iteration"
	if input.Reason != "" {
		output.Message += ": " + input.Reason
	}
	return nil
}

func (s *Service) exitLoop(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ExitLoopInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ExitLoopOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.ExitLoop(ctx, input, output)
}
