package execution

import "sync"

// LoopControl is the termination signal owned by a single loop frame. The
// control.exitLoop capability requests termination; the loop node inspects
// the signal after each full iteration and stops before the next one starts.
// Requesting an exit has no other side effect.
type LoopControl struct {
	mu        sync.Mutex
	requested bool
}

// RequestExit marks the loop for termination at the end of the current
// iteration.
func (c *LoopControl) RequestExit() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requested = true
	c.mu.Unlock()
}

// Requested reports whether an exit has been requested.
func (c *LoopControl) Requested() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requested
}
