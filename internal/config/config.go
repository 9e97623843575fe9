package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for memchat.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Provider ProviderConfig `json:"provider"`
	Storage  StorageConfig  `json:"storage"`
	Telecom  TelecomConfig  `json:"telecom"`
	Metrics  MetricsConfig  `json:"metrics"`
}

const (
	VariantGeneral = "general"
	VariantTelecom = "telecom"
)

type GeneralConfig struct {
	LogLevel            string `json:"logLevel"`
	LogFormat           string `json:"logFormat,omitempty"` // "text" | "json"
	Variant             string `json:"variant"`             // "general" | "telecom"
	HistoryWindow       int    `json:"historyWindow"`
	MemoryWindow        int    `json:"memoryWindow"`
	MemoryCap           int    `json:"memoryCap,omitempty"` // 0 = unbounded
	ModelTimeoutSeconds int    `json:"modelTimeoutSeconds"`
}

type ProviderConfig struct {
	Name            string  `json:"name"` // "gemini" | "openai"
	APIKey          string  `json:"apiKey,omitempty"`
	APIBase         string  `json:"apiBase,omitempty"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type StorageConfig struct {
	Backend string      `json:"backend"`
	Dir     string      `json:"dir"`
	DBPath  string      `json:"dbPath,omitempty"`
	Redis   RedisConfig `json:"redis,omitempty"`
}

type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password,omitempty"`
	DB        int    `json:"db"`
	Namespace string `json:"namespace"`
}

// TelecomConfig configures the telecom domain reference table.
// An empty ReferencesFile uses the built-in table.
type TelecomConfig struct {
	ReferencesFile string `json:"referencesFile,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Endpoint string `json:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.memchat).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memchat"
	}
	return filepath.Join(home, ".memchat")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.Storage.Dir = ExpandPath(cfg.Storage.Dir)
	cfg.Storage.DBPath = ExpandPath(cfg.Storage.DBPath)
	cfg.Telecom.ReferencesFile = ExpandPath(cfg.Telecom.ReferencesFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.Variant {
	case VariantGeneral, VariantTelecom:
	default:
		errs = append(errs, "general.variant must be one of: general, telecom")
	}
	switch cfg.General.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, "general.logFormat must be one of: text, json")
	}
	if cfg.General.HistoryWindow < 1 {
		errs = append(errs, "general.historyWindow must be >= 1")
	}
	if cfg.General.MemoryWindow < 1 {
		errs = append(errs, "general.memoryWindow must be >= 1")
	}
	if cfg.General.MemoryCap < 0 {
		errs = append(errs, "general.memoryCap must be >= 0")
	}
	if cfg.General.MemoryCap > 0 && cfg.General.MemoryCap < cfg.General.MemoryWindow {
		errs = append(errs, "general.memoryCap must be 0 or >= general.memoryWindow")
	}
	if cfg.General.ModelTimeoutSeconds < 1 {
		errs = append(errs, "general.modelTimeoutSeconds must be >= 1")
	}

	switch cfg.Provider.Name {
	case "gemini", "openai":
	default:
		errs = append(errs, "provider.name must be one of: gemini, openai")
	}
	if cfg.Provider.Model == "" {
		errs = append(errs, "provider.model is required")
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		errs = append(errs, "provider.temperature must be between 0 and 2")
	}
	if cfg.Provider.TopP <= 0 || cfg.Provider.TopP > 1 {
		errs = append(errs, "provider.topP must be in (0, 1]")
	}
	if cfg.Provider.TopK < 0 {
		errs = append(errs, "provider.topK must be >= 0")
	}
	if cfg.Provider.MaxOutputTokens < 1 {
		errs = append(errs, "provider.maxOutputTokens must be >= 1")
	}

	switch cfg.Storage.Backend {
	case BackendFile:
		if cfg.Storage.Dir == "" {
			errs = append(errs, "storage.dir is required for the file backend")
		}
	case BackendSQLite:
		if cfg.Storage.DBPath == "" {
			errs = append(errs, "storage.dbPath is required for the sqlite backend")
		}
	case BackendRedis:
		if cfg.Storage.Redis.Addr == "" {
			errs = append(errs, "storage.redis.addr is required for the redis backend")
		}
	default:
		errs = append(errs, "storage.backend must be one of: file, sqlite, redis")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sanitize returns a copy of cfg with secrets masked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Provider.APIKey = mask(cfg.Provider.APIKey)
	out.Storage.Redis.Password = mask(cfg.Storage.Redis.Password)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
