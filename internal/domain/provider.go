package domain

import "context"

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// DefaultGenerationConfig is the fixed per-deployment configuration.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     1.0,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 8192,
	}
}

// Provider is the interface every language-model backend implements.
// Generate takes a fully composed prompt and returns the generated text.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
}

// CredentialedProvider is implemented by providers that need an API key.
type CredentialedProvider interface {
	Provider
	HasCredential() bool
}
