package types

// Service is a named tool service exposing one or more invokable methods.
// Agents reference methods with a fully qualified "service.method" name.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

type Proxy func(base Service) Service
