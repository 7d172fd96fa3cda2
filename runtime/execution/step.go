package execution

import (
	"sync"
	"time"

	"github.com/gavelflow/gavel/internal/clock"
	"github.com/gavelflow/gavel/tracing"
)

// Step records one unit of work inside a run: a single iteration of a leaf
// agent, or the traversal of a composite node. Retried attempts of the same
// agent share one step; Attempts carries the count.
type Step struct {
	ID        string        `json:"id"`
	RunID     string        `json:"runId"`
	NodeID    string        `json:"nodeId"`
	NodeName  string        `json:"nodeName"`
	Kind      string        `json:"kind"`
	State     StepState     `json:"state"`
	Attempts  int           `json:"attempts,omitempty"`
	Iteration int           `json:"iteration,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   *time.Time    `json:"endedAt,omitempty"`
	Span      *tracing.Span `json:"-"`

	mu sync.Mutex
}

// NewStep creates a running step for the supplied node.
func NewStep(id, runID, nodeID, nodeName, kind string) *Step {
	return &Step{
		ID:        id,
		RunID:     runID,
		NodeID:    nodeID,
		NodeName:  nodeName,
		Kind:      kind,
		State:     StepStateRunning,
		StartedAt: clock.Now(),
	}
}

// Complete marks the step completed.
func (s *Step) Complete() {
	s.finish(StepStateCompleted, nil)
}

// Fail marks the step failed with the supplied error.
func (s *Step) Fail(err error) {
	s.finish(StepStateFailed, err)
}

// Skip marks the step skipped.
func (s *Step) Skip() {
	s.finish(StepStateSkipped, nil)
}

func (s *Step) finish(state StepState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State.IsTerminal() {
		return
	}
	s.State = state
	if err != nil {
		s.Error = err.Error()
	}
	now := clock.Now()
	s.EndedAt = &now
}

// Elapsed returns the step duration, using now for steps still in flight.
func (s *Step) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}
