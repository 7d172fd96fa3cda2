package storage

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/gavelflow/gavel/model/types"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

const name = "storage"

// Service provides report persistence using viant/afs, so reports can land
// on the local file system, in-memory storage or any other afs scheme.
type Service struct {
	fs      afs.Service
	baseURL string
}

// New creates a storage service; relative write locations resolve against
// baseURL.
func New(baseURL string) *Service {
	return &Service{fs: afs.New(), baseURL: baseURL}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "write",
			Description: "Writes text content to a file, creating parent directories and replacing any previous content",
			Input:       reflect.TypeOf(&WriteInput{}),
			Output:      reflect.TypeOf(&WriteOutput{}),
		},
		{
			Name:        "read",
			Description: "Reads text content from a file",
			Input:       reflect.TypeOf(&ReadInput{}),
			Output:      reflect.TypeOf(&ReadOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(name string) (types.Executable, error) {
	switch strings.ToLower(name) {
	case "write":
		return s.write, nil
	case "read":
		return s.read, nil
	default:
		return nil, types.NewMethodNotFoundError(name)
	}
}

// WriteInput defines parameters for writing a file
type WriteInput struct {
	Location string `json:"location" required:"true" description:"Destination path, resolved against the service base URL when relative"`
	Content  string `json:"content" required:"true" description:"Text content to write"`
}

// WriteOutput describes the written file
type WriteOutput struct {
	URL  string `json:"url"`
	Size int    `json:"size"`
}

// Write stores content at the location. Missing parent directories are
// created and an existing file is replaced.
func (s *Service) Write(ctx context.Context, input *WriteInput, output *WriteOutput) error {
	if input.Location == "" {
		return fmt.Errorf("write requires a location")
	}
	URL := s.resolve(input.Location)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader([]byte(input.Content))); err != nil {
		return fmt.Errorf("failed to write %s: %w", URL, err)
	}
	output.URL = URL
	output.Size = len(input.Content)
	return nil
}

// ReadInput defines parameters for reading a file
type ReadInput struct {
	Location string `json:"location" required:"true" description:"Source path, resolved against the service base URL when relative"`
}

// ReadOutput contains the file content
type ReadOutput struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Read loads content from the location.
func (s *Service) Read(ctx context.Context, input *ReadInput, output *ReadOutput) error {
	if input.Location == "" {
		return fmt.Errorf("read requires a location")
	}
	URL := s.resolve(input.Location)
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", URL, err)
	}
	output.URL = URL
	output.Content = string(data)
	return nil
}

func (s *Service) resolve(location string) string {
	if s.baseURL == "" || !url.IsRelative(location) {
		return location
	}
	return url.Join(s.baseURL, location)
}

func (s *Service) write(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*WriteInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*WriteOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Write(ctx, input, output)
}

func (s *Service) read(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*ReadInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*ReadOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	return s.Read(ctx, input, output)
}
