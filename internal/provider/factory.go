package provider

import (
	"fmt"
	"log/slog"
	"time"

	"memchat/internal/config"
	"memchat/internal/domain"
)

// Constructor creates a provider from its config section.
type Constructor func(pc config.ProviderConfig, timeout time.Duration, logger *slog.Logger) domain.Provider

var constructors = map[string]Constructor{
	GeminiName: func(pc config.ProviderConfig, timeout time.Duration, logger *slog.Logger) domain.Provider {
		return NewGemini(GeminiConfig{
			APIKey:  pc.Credential(),
			BaseURL: pc.APIBase,
			Model:   pc.Model,
			Client:  SharedHTTPClient(timeout),
			Logger:  logger,
		})
	},
	OpenAIName: func(pc config.ProviderConfig, timeout time.Duration, logger *slog.Logger) domain.Provider {
		base := pc.APIBase
		if base == GeminiDefaultBaseURL {
			base = ""
		}
		return NewOpenAI(OpenAIConfig{
			APIKey:  pc.Credential(),
			APIBase: base,
			Model:   pc.Model,
			Client:  SharedHTTPClient(timeout),
			Logger:  logger,
		})
	},
}

// NewFromConfig builds the configured provider. An unexpanded ${VAR} key
// counts as no key; the returned provider then reports HasCredential false.
func NewFromConfig(pc config.ProviderConfig, timeout time.Duration, logger *slog.Logger) (domain.CredentialedProvider, error) {
	ctor, ok := constructors[pc.Name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", pc.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := ctor(pc, timeout, logger.With("provider", pc.Name))
	cp, ok := p.(domain.CredentialedProvider)
	if !ok {
		return nil, fmt.Errorf("provider %q does not report credentials", pc.Name)
	}
	return cp, nil
}
