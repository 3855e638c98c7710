// Package embeddings turns text into fixed-length float vectors for
// semantic matching. Providers are optional: when none is configured
// the registry falls back to lexical matching only.
package embeddings

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cn-vhql/AS-SKILLS/internal/config"
)

// Provider embeds text into a fixed-length float vector.
//
// Implementations must be deterministic for the same input text and model.
type Provider interface {
	ModelID() string
	Dim() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config contains the resolved embeddings configuration.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// LoadConfig resolves embeddings config from environment variables
// first, then ~/.as-skills/.env.
func LoadConfig() (*Config, error) {
	provider, err := config.GetConfigValue("ASSKILLS_EMBEDDINGS_PROVIDER")
	if err != nil {
		return nil, err
	}
	model, err := config.GetConfigValue("ASSKILLS_EMBEDDINGS_MODEL")
	if err != nil {
		return nil, err
	}
	apiKey, err := config.GetConfigValue("ASSKILLS_EMBEDDINGS_API_KEY")
	if err != nil {
		return nil, err
	}
	baseURL, err := config.GetConfigValue("ASSKILLS_EMBEDDINGS_BASE_URL")
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Config{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
		BaseURL:  baseURL,
	}, nil
}

// NewFromConfig returns an embeddings provider.
func NewFromConfig(cfg *Config) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("embeddings config is nil")
	}
	if cfg.Provider == "" {
		return nil, errors.New("embeddings provider is not configured (set ASSKILLS_EMBEDDINGS_PROVIDER)")
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg), nil
	default:
		return nil, errors.Errorf("unsupported embeddings provider: %s", cfg.Provider)
	}
}
