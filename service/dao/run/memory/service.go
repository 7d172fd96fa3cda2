package memory

import (
	"context"
	"sync"

	"github.com/gavelflow/gavel/runtime/execution"
	"github.com/gavelflow/gavel/service/dao"
)

// Service is a thread-safe in-memory store for runs keyed by run ID. A List
// parameter named "status" filters by run status.
type Service struct {
	runs map[string]*execution.Run
	mux  sync.RWMutex
}

var _ dao.Service[string, execution.Run] = (*Service)(nil)

func (s *Service) Save(_ context.Context, run *execution.Run) error {
	if run == nil {
		return dao.ErrNilEntity
	}
	if run.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *Service) Load(_ context.Context, id string) (*execution.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	run, ok := s.runs[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return run, nil
}

func (s *Service) Delete(_ context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.runs[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.runs, id)
	return nil
}

func (s *Service) List(_ context.Context, parameters ...*dao.Parameter) ([]*execution.Run, error) {
	var status string
	for _, param := range parameters {
		if param != nil && param.Name == "status" {
			if value, ok := param.Value.(string); ok {
				status = value
			}
		}
	}

	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*execution.Run, 0, len(s.runs))
	for _, run := range s.runs {
		if status != "" && run.GetStatus() != status {
			continue
		}
		out = append(out, run)
	}
	return out, nil
}

func New() *Service {
	return &Service{runs: map[string]*execution.Run{}}
}
