package gavel

import (
	"fmt"

	"github.com/gavelflow/gavel/llm"
	"github.com/gavelflow/gavel/runtime/runner"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON, YAML, environment variables, etc. The zero-value is
// useful - all nested fields inherit their package defaults.
type Config struct {
	Runner         runner.Config `json:"runner" yaml:"runner"`
	Models         []*llm.Config `json:"models,omitempty" yaml:"models,omitempty"`
	TeamBaseURL    string        `json:"teamBaseURL,omitempty" yaml:"teamBaseURL,omitempty"`
	StorageBaseURL string        `json:"storageBaseURL,omitempty" yaml:"storageBaseURL,omitempty"`
	AppendOnlyKeys []string      `json:"appendOnlyKeys,omitempty" yaml:"appendOnlyKeys,omitempty"`
}

// DefaultConfig returns a Config populated with the same default values the
// constructors would otherwise apply. Callers may modify the returned struct
// before passing it to NewFromConfig.
func DefaultConfig() *Config {
	return &Config{
		Runner:         runner.DefaultConfig(),
		AppendOnlyKeys: defaultAppendOnlyKeys,
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Runner.MaxModelAttempts < 0 {
		return fmt.Errorf("runner.maxModelAttempts must be >= 0")
	}
	if c.Runner.DefaultMaxIterations < 0 {
		return fmt.Errorf("runner.defaultMaxIterations must be >= 0")
	}
	for i, model := range c.Models {
		if err := model.Validate(); err != nil {
			return fmt.Errorf("models[%d]: %w", i, err)
		}
	}
	return nil
}

// NewFromConfig builds a service from the supplied configuration.
func NewFromConfig(config *Config, options ...Option) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base := []Option{
		WithRunnerConfig(config.Runner),
		WithTeamBaseURL(config.TeamBaseURL),
		WithStorageBaseURL(config.StorageBaseURL),
	}
	if len(config.AppendOnlyKeys) > 0 {
		base = append(base, WithAppendOnlyKeys(config.AppendOnlyKeys...))
	}
	if len(config.Models) > 0 {
		base = append(base, WithModelConfigs(config.Models...))
	}
	return New(append(base, options...)...), nil
}
