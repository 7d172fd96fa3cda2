package extension

import (
	"sync"

	"github.com/gavelflow/gavel/model/types"
	"github.com/viant/x"
)

// Tools is the registry of capability services agents can call. Services are
// keyed by name; a tool reference "state.append" resolves to the "state"
// service and its "append" method.
type Tools struct {
	types    *Types
	services map[string]types.Service
	mux      sync.RWMutex
}

func (s *Tools) Types() *Types {
	return s.types
}

// Lookup returns a service by name
func (s *Tools) Lookup(name string) types.Service {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.services[name]
}

// Register registers a service
func (s *Tools) Register(service types.Service) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if typer, ok := service.(DataTypeIniter); ok {
		typer.InitTypes(s.types)
	}
	s.services[service.Name()] = service
}

// Services returns registered service names.
func (s *Tools) Services() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var names []string
	for name := range s.services {
		names = append(names, name)
	}
	return names
}

// DataTypeIniter lets a service register its input and output types on
// registration.
type DataTypeIniter interface {
	InitTypes(types *Types)
}

// NewTools creates a new tool registry
func NewTools(goTypes ...*x.Type) *Tools {
	ret := &Tools{
		types:    NewTypes(),
		services: make(map[string]types.Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
