package state

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/gavelflow/gavel/model/types"
	"github.com/gavelflow/gavel/runtime/execution"
)

const name = "state"

// Service exposes the run session to agents as a capability. Append is the
// only write agents use for evidence keys; sequences only ever grow within a
// run.
type Service struct {
	appendOnly map[string]bool
}

// New creates a state service. Keys listed as append-only reject set so
// accumulated evidence cannot be overwritten mid-run.
func New(appendOnlyKeys ...string) *Service {
	appendOnly := make(map[string]bool, len(appendOnlyKeys))
	for _, key := range appendOnlyKeys {
		appendOnly[key] = true
	}
	return &Service{appendOnly: appendOnly}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "append",
			Description: "Appends a value to a shared state sequence; prior entries are preserved",
			Input:       reflect.TypeOf(&AppendInput{}),
			Output:      reflect.TypeOf(&AppendOutput{}),
		},
		{
			Name:        "set",
			Description: "Sets a shared state key to a value, replacing any previous value",
			Input:       reflect.TypeOf(&SetInput{}),
			Output:      reflect.TypeOf(&SetOutput{}),
		},
		{
			Name:        "get",
			Description: "Reads a shared state key",
			Input:       reflect.TypeOf(&GetInput{}),
			Output:      reflect.TypeOf(&GetOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "append":
		return s.append, nil
	case "set":
		return s.set, nil
	case "get":
		return s.get, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

// AppendInput defines parameters for appending to a state sequence
type AppendInput struct {
	Key   string      `json:"key" required:"true" description:"State key to append under"`
	Value interface{} `json:"value" required:"true" description:"Value to append"`
}

// AppendOutput contains the sequence size after the append
type AppendOutput struct {
	Key  string `json:"key"`
	Size int    `json:"size" description:"Number of entries under the key after the append"`
}

// Append appends a value to the session sequence under key.
func (s *Service) Append(ctx context.Context, input *AppendInput, output *AppendOutput) error {
	session, err := sessionFromContext(ctx)
	if err != nil {
		return err
	}
	if input.Key == "" {
		return fmt.Errorf("append requires a key")
	}
	session.Append(input.Key, input.Value)
	output.Key = input.Key
	output.Size = session.Len(input.Key)
	return nil
}

// SetInput defines parameters for setting a state key
type SetInput struct {
	Key   string      `json:"key" required:"true" description:"State key to set"`
	Value interface{} `json:"value" description:"Value to store"`
}

// SetOutput confirms the write
type SetOutput struct {
	Key string `json:"key"`
}

// Set replaces the value under key.
func (s *Service) Set(ctx context.Context, input *SetInput, output *SetOutput) error {
	session, err := sessionFromContext(ctx)
	if err != nil {
		return err
	}
	if input.Key == "" {
		return fmt.Errorf("set requires a key")
	}
	if s.appendOnly[input.Key] {
		return fmt.Errorf("key %s is append-only", input.Key)
	}
	session.Set(input.Key, input.Value)
	output.Key = input.Key
	return nil
}

// GetInput defines parameters for reading a state key
type GetInput struct {
	Key string `json:"key" required:"true" description:"State key to read"`
}

// GetOutput contains the value under the key
type GetOutput struct {
	Key    string      `json:"key"`
	Value  interface{} `json:"value,omitempty"`
	Exists bool        `json:"exists"`
}

// Get reads the value under key.
func (s *Service) Get(ctx context.Context, input *GetInput, output *GetOutput) error {
	session, err := sessionFromContext(ctx)
	if err != nil {
		return err
	}
	output.Key = input.Key
	output.Value, output.Exists = session.Get(input.Key)
	return nil
}

func sessionFromContext(ctx context.Context) (*execution.Session, error) {
	run := execution.ContextValue[*execution.Run](ctx)
	if run == nil || run.Session == nil {
		return nil, fmt.Errorf("no run session in context")
	}
	return run.Session, nil
}

func (s *Service) append(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*AppendInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*AppendOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Append(ctx, input, output)
}

func (s *Service) set(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*SetInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*SetOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Set(ctx, input, output)
}

func (s *Service) get(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*GetInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*GetOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Get(ctx, input, output)
}
