package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/viant/scy"
	"github.com/viant/toolbox"
)

// Config describes a model backend in declarative form so provider wiring
// can live in team runner configuration rather than code.
type Config struct {
	// Provider selects the backend implementation, e.g. "gemini".
	Provider string `json:"provider" yaml:"provider"`

	// Model is the provider-side model identifier.
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the provider endpoint, mostly for tests.
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`

	// APIKeyEnv names an environment variable holding the API key.
	APIKeyEnv string `json:"apiKeyEnv,omitempty" yaml:"apiKeyEnv,omitempty"`

	// APIKeyURL locates an scy-encrypted secret holding the API key.
	APIKeyURL string `json:"apiKeyURL,omitempty" yaml:"apiKeyURL,omitempty"`

	// APIKeySecretKey is the scy encryption key, e.g. "blowfish://default".
	APIKeySecretKey string `json:"apiKeySecretKey,omitempty" yaml:"apiKeySecretKey,omitempty"`

	// Options carries provider specific settings.
	Options map[string]interface{} `json:"options,omitempty" yaml:"options,omitempty"`
}

// APIKey resolves the backend credential. An environment variable wins over
// an encrypted secret; structured secrets expose the key under "apiKey".
func (c *Config) APIKey(ctx context.Context) (string, error) {
	if c.APIKeyEnv != "" {
		if value := os.Getenv(c.APIKeyEnv); value != "" {
			return value, nil
		}
	}
	if c.APIKeyURL == "" {
		return "", fmt.Errorf("model %s has no API key source", c.Model)
	}
	resource := scy.NewResource(nil, c.APIKeyURL, c.APIKeySecretKey)
	secret, err := scy.New().Load(ctx, resource)
	if err != nil {
		return "", fmt.Errorf("failed to load API key from %s: %w", c.APIKeyURL, err)
	}
	if secret.IsPlain || secret.Target == nil {
		return secret.String(), nil
	}
	aMap := map[string]interface{}{}
	if err := toolbox.DefaultConverter.AssignConverted(&aMap, secret.Target); err != nil {
		return "", fmt.Errorf("failed to convert secret data: %w", err)
	}
	if key, ok := aMap["apiKey"].(string); ok && key != "" {
		return key, nil
	}
	return "", fmt.Errorf("secret at %s holds no apiKey", c.APIKeyURL)
}

// Validate checks the declarative config for obvious omissions.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("model config requires a provider")
	}
	if c.Model == "" {
		return fmt.Errorf("model config requires a model identifier")
	}
	return nil
}
