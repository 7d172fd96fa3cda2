package team

import (
	"github.com/viant/afs/storage"
)

type Option func(*Service)

// WithBaseURL sets the base URL relative team locations resolve against
func WithBaseURL(baseURL string) Option {
	return func(s *Service) {
		s.baseURL = baseURL
	}
}

// WithFsOptions sets storage options passed to every download, for example
// an embedded file system.
func WithFsOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.fsOptions = options
	}
}
