package execution

import (
	"reflect"
	"sync"

	"github.com/gavelflow/gavel/model/state"
	"github.com/gavelflow/gavel/prompt"
)

// Session is the shared state store for a single run. Every agent in the run
// observes the same session; individual writes are serialised by the mutex so
// that concurrent parallel-branch writes to distinct keys are both visible
// after the branch barrier.
type Session struct {
	ID        string
	State     map[string]interface{}
	mu        sync.RWMutex
	listeners []StateListener // invoked on Set and Append
}

// StateListener is invoked every time Session.Set or Session.Append inserts
// or overwrites a key.
type StateListener func(s *Session, key string, oldVal, newVal interface{})

// RegisterListeners attaches a callback that will be called on every write.
// The call is made synchronously after the session mutex is released;
// listeners must not block for long.
func (s *Session) RegisterListeners(fn ...StateListener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn...)
}

// Set adds or updates a value in the session
func (s *Session) Set(key string, value interface{}) {
	s.mu.Lock()
	old := s.State[key]
	s.State[key] = value
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(s, key, old, value)
	}
}

// Get retrieves a value from the session
func (s *Session) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.State[key]
	return value, exists
}

// Append reads the current sequence under key (defaulting to empty), appends
// value and writes the sequence back. Prior entries are never removed within
// a run; the sequence only grows.
func (s *Session) Append(key string, value interface{}) {
	if value == nil {
		return
	}

	s.mu.Lock()
	var dst []interface{}
	old := s.State[key]
	if old != nil {
		switch v := old.(type) {
		case []interface{}:
			dst = v
		default:
			dst = []interface{}{v}
		}
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if elem := rv.Index(i).Interface(); elem != nil {
				dst = append(dst, elem)
			}
		}
	} else {
		dst = append(dst, value)
	}
	s.State[key] = dst
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(s, key, old, dst)
	}
}

// GetString retrieves a value as a string
func (s *Session) GetString(key string) (string, bool) {
	value, exists := s.Get(key)
	if !exists {
		return "", false
	}
	strVal, ok := value.(string)
	return strVal, ok
}

// GetBool retrieves a value as a boolean
func (s *Session) GetBool(key string) (bool, bool) {
	value, exists := s.Get(key)
	if !exists {
		return false, false
	}
	boolVal, ok := value.(bool)
	return boolVal, ok
}

// Len returns the number of entries of a sequence key, zero when absent and
// one for a scalar value.
func (s *Session) Len(key string) int {
	value, exists := s.Get(key)
	if !exists || value == nil {
		return 0
	}
	if items, ok := value.([]interface{}); ok {
		return len(items)
	}
	return 1
}

// Snapshot returns a point-in-time copy of the session state suitable for
// template rendering without holding the session lock.
func (s *Session) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]interface{}, len(s.State))
	for k, v := range s.State {
		result[k] = v
	}
	return result
}

// Render expands `{ key? }` placeholders in a template using the session state
func (s *Session) Render(template string) string {
	return prompt.Render(template, s.Snapshot())
}

// ApplyParameters applies initialization parameters to the session. String
// values are rendered against the state accumulated so far, so parameters can
// reference earlier ones.
func (s *Session) ApplyParameters(params state.Parameters) {
	for _, param := range params {
		value := param.Value
		if text, ok := value.(string); ok {
			value = prompt.Render(text, s.Snapshot())
		}
		if value == nil {
			value = param.Default
		}
		s.Set(param.Name, value)
	}
}

// NewSession creates a new session
func NewSession(id string, opt ...Option) *Session {
	ret := &Session{
		ID:    id,
		State: make(map[string]interface{}),
	}
	for _, o := range opt {
		o(ret)
	}
	return ret
}

