package config

import "memchat/internal/domain"

const (
	DefaultHistoryWindow = 5
	DefaultMemoryWindow  = 3
)

func Defaults() *Config {
	gen := domain.DefaultGenerationConfig()
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			LogFormat:           "text",
			Variant:             VariantGeneral,
			HistoryWindow:       DefaultHistoryWindow,
			MemoryWindow:        DefaultMemoryWindow,
			ModelTimeoutSeconds: 120,
		},
		Provider: ProviderConfig{
			Name:            "gemini",
			APIBase:         "https://generativelanguage.googleapis.com",
			Model:           "gemini-1.5-flash-8b",
			Temperature:     gen.Temperature,
			TopP:            gen.TopP,
			TopK:            gen.TopK,
			MaxOutputTokens: gen.MaxOutputTokens,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Dir:     "sessions",
			DBPath:  "~/.memchat/sessions.db",
			Redis: RedisConfig{
				Addr:      "localhost:6379",
				Namespace: "memchat",
			},
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Addr:     "127.0.0.1:9464",
			Endpoint: "/metrics",
		},
	}
}

// APIKeyPlaceholder is written by "memchat init" so the key comes from the environment.
const APIKeyPlaceholder = "${GEMINI_API_KEY}"

// Credential returns the configured API key, or "" when the key is unset or
// still an unexpanded ${VAR} reference.
func (p ProviderConfig) Credential() string {
	if envVarPattern.MatchString(p.APIKey) {
		return ""
	}
	return p.APIKey
}

// GenerationConfig returns the sampling parameters configured for the provider.
func (p ProviderConfig) GenerationConfig() domain.GenerationConfig {
	return domain.GenerationConfig{
		Temperature:     p.Temperature,
		TopP:            p.TopP,
		TopK:            p.TopK,
		MaxOutputTokens: p.MaxOutputTokens,
	}
}
