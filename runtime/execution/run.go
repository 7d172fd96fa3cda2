package execution

import (
	"sync"
	"time"

	"github.com/gavelflow/gavel/internal/clock"
	"github.com/gavelflow/gavel/model"
	"github.com/gavelflow/gavel/model/graph"
	"github.com/gavelflow/gavel/progress"
	"github.com/gavelflow/gavel/tracing"
)

// Run represents a single execution of an agent team. It owns the session
// (shared state store), the per-node step records and the terminal status.
// The session is created empty at run start, mutated by capability
// invocations during the run and discarded with the run; only the report
// artifact written by the final step survives.
type Run struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	Team       *model.Team        `json:"team"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
	Session    *Session           `json:"session"`
	Steps      []*Step            `json:"steps,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
	Span       *tracing.Span      `json:"-"`
	Progress   *progress.Progress `json:"-"`

	mu       sync.RWMutex
	allNodes map[string]*graph.Node
}

// NewRun creates a run for the supplied team seeded with the initial state.
func NewRun(id string, team *model.Team, initialState map[string]interface{}, options ...Option) *Run {
	now := clock.Now()
	if initialState == nil {
		initialState = make(map[string]interface{})
	}
	options = append([]Option{WithState(initialState)}, options...)
	return &Run{
		ID:        id,
		Name:      team.Name,
		Status:    StatePending,
		Team:      team,
		CreatedAt: now,
		UpdatedAt: now,
		Session:   NewSession(id, options...),
		Errors:    make(map[string]string),
	}
}

// GetStatus returns the run status
func (r *Run) GetStatus() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status
}

// SetStatus updates the run status, stamping FinishedAt on terminal states.
func (r *Run) SetStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	switch status {
	case StateCompleted, StateFailed:
		now := clock.Now()
		r.FinishedAt = &now
	}
	r.UpdatedAt = clock.Now()
}

// RecordError stores a node-scoped error message on the run.
func (r *Run) RecordError(nodeKey string, err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[nodeKey] = err.Error()
}

// AddStep appends a step record to the run.
func (r *Run) AddStep(step *Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, step)
	r.UpdatedAt = clock.Now()
}

// StepCount returns the number of recorded steps for the given node ID; an
// empty ID counts all steps.
func (r *Run) StepCount(nodeID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if nodeID == "" {
		return len(r.Steps)
	}
	count := 0
	for _, step := range r.Steps {
		if step.NodeID == nodeID {
			count++
		}
	}
	return count
}

// LookupNode resolves a node by ID or name.
func (r *Run) LookupNode(key string) *graph.Node {
	r.mu.Lock()
	if r.allNodes == nil {
		r.allNodes = r.Team.AllNodes()
	}
	nodes := r.allNodes
	r.mu.Unlock()
	return nodes[key]
}

// Output builds the terminal summary of the run.
func (r *Run) Output() *RunOutput {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &RunOutput{
		RunID:  r.ID,
		Status: r.Status,
		State:  r.Session.Snapshot(),
	}
	if len(r.Errors) > 0 {
		out.Errors = make(map[string]string, len(r.Errors))
		for k, v := range r.Errors {
			out.Errors[k] = v
		}
	}
	if r.FinishedAt != nil {
		out.TimeTaken = r.FinishedAt.Sub(r.CreatedAt)
	}
	return out
}

// Wait blocks until the run reaches a terminal status or the timeout elapses.
type Wait func(timeout time.Duration) (*RunOutput, error)

// RunOutput is the terminal summary of a run.
type RunOutput struct {
	RunID     string
	Status    string
	State     map[string]interface{}
	Errors    map[string]string
	TimeTaken time.Duration
	Timeout   bool
}
