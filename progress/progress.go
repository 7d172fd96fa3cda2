// Package progress provides a lightweight tracker that keeps aggregated step
// counters for a single run. The tracker lives in the run context so every
// component that receives the context can atomically update the counters via
// the Delta helper without a global registry.

package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the runner. The
// fields are signed and can be positive or negative.
type Delta struct {
	Total     int
	Completed int
	Skipped   int
	Failed    int
	Running   int
}

// Progress keeps aggregated step counters for a run. Safe for concurrent use.
type Progress struct {
	RunID     string
	Team      string
	StartedAt time.Time

	TotalSteps     int
	CompletedSteps int
	SkippedSteps   int
	FailedSteps    int
	RunningSteps   int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta. The onChange callback, when registered,
// is invoked with a copy of the updated tracker outside the critical section
// so slow callbacks do not block the runner.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.TotalSteps += d.Total
	p.CompletedSteps += d.Completed
	p.SkippedSteps += d.Skipped
	p.FailedSteps += d.Failed
	p.RunningSteps += d.Running

	snapshot := *p
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return *p
}

// OnChange registers a callback invoked after every Update.
func (p *Progress) OnChange(fn func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = fn
	p.Unlock()
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithProgress embeds the tracker in ctx.
func WithProgress(ctx context.Context, p *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the tracker, nil when absent.
func FromContext(ctx context.Context) *Progress {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Progress); ok {
		return v
	}
	return nil
}
