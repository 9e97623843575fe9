package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestDefaults_GenerationConfig(t *testing.T) {
	gen := Defaults().Provider.GenerationConfig()
	if gen.Temperature != 1.0 || gen.TopP != 0.95 || gen.TopK != 40 || gen.MaxOutputTokens != 8192 {
		t.Fatalf("unexpected default generation config: %+v", gen)
	}
}

func TestDefaults_Windows(t *testing.T) {
	cfg := Defaults()
	if cfg.General.HistoryWindow != 5 {
		t.Fatalf("expected history window 5, got %d", cfg.General.HistoryWindow)
	}
	if cfg.General.MemoryWindow != 3 {
		t.Fatalf("expected memory window 3, got %d", cfg.General.MemoryWindow)
	}
}

func TestValidate_InvalidVariant(t *testing.T) {
	cfg := Defaults()
	cfg.General.Variant = "retail"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestValidate_ValidVariants(t *testing.T) {
	for _, v := range []string{VariantGeneral, VariantTelecom} {
		cfg := Defaults()
		cfg.General.Variant = v
		if err := Validate(cfg); err != nil {
			t.Fatalf("variant %q should be valid: %v", v, err)
		}
	}
}

func TestValidate_Windows_TooLow(t *testing.T) {
	cfg := Defaults()
	cfg.General.HistoryWindow = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for historyWindow=0")
	}

	cfg = Defaults()
	cfg.General.MemoryWindow = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for memoryWindow=0")
	}
}

func TestValidate_MemoryCap(t *testing.T) {
	cfg := Defaults()
	cfg.General.MemoryCap = 2
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for memoryCap smaller than memoryWindow")
	}

	cfg.General.MemoryCap = 3
	if err := Validate(cfg); err != nil {
		t.Fatalf("memoryCap=3 should be valid: %v", err)
	}
}

func TestValidate_ModelTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.General.ModelTimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for modelTimeoutSeconds=0")
	}
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.Name = "ollama"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidate_SamplingBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.TopP = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for topP=0")
	}

	cfg = Defaults()
	cfg.Provider.Temperature = 3
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for temperature=3")
	}

	cfg = Defaults()
	cfg.Provider.MaxOutputTokens = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxOutputTokens=0")
	}
}

func TestValidate_StorageBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "s3"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg = Defaults()
	cfg.Storage.Dir = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for file backend without dir")
	}

	cfg = Defaults()
	cfg.Storage.Backend = BackendRedis
	cfg.Storage.Redis.Addr = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for redis backend without addr")
	}

	cfg = Defaults()
	cfg.Storage.Backend = BackendSQLite
	if err := Validate(cfg); err != nil {
		t.Fatalf("sqlite backend with default dbPath should be valid: %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.General.Variant = "x"
	cfg.Provider.Name = "y"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "general.variant") || !strings.Contains(err.Error(), "provider.name") {
		t.Fatalf("expected both problems reported, got: %v", err)
	}
}

// --- Credential ---

func TestCredential_Placeholder(t *testing.T) {
	pc := Defaults().Provider
	pc.APIKey = APIKeyPlaceholder
	if got := pc.Credential(); got != "" {
		t.Fatalf("unexpanded placeholder should not count as a credential, got %q", got)
	}

	pc.APIKey = "AIza-real-key"
	if got := pc.Credential(); got != "AIza-real-key" {
		t.Fatalf("expected key, got %q", got)
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Provider.APIKey = "AIzaSyVerySecretValue"
	cfg.Storage.Redis.Password = "pw"

	out := Sanitize(cfg)
	if out.Provider.APIKey != "AIza****" {
		t.Fatalf("expected masked key, got %q", out.Provider.APIKey)
	}
	if out.Storage.Redis.Password != "****" {
		t.Fatalf("expected masked password, got %q", out.Storage.Redis.Password)
	}
	if cfg.Provider.APIKey != "AIzaSyVerySecretValue" {
		t.Fatal("Sanitize must not modify the original config")
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.Variant = VariantTelecom
	original.Storage.Dir = filepath.Join(dir, "sessions")

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.General.Variant != VariantTelecom {
		t.Fatalf("expected telecom variant, got %q", loaded.General.Variant)
	}
	if loaded.Storage.Dir != original.Storage.Dir {
		t.Fatalf("expected dir %q, got %q", original.Storage.Dir, loaded.Storage.Dir)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"general": {"variant": "telecom"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.General.HistoryWindow != DefaultHistoryWindow {
		t.Fatalf("expected default history window, got %d", cfg.General.HistoryWindow)
	}
	if cfg.Provider.Model != "gemini-1.5-flash-8b" {
		t.Fatalf("expected default model, got %q", cfg.Provider.Model)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ExpandsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("MEMCHAT_TEST_KEY", "secret-123")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"provider": {"apiKey": "${MEMCHAT_TEST_KEY}"}}`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.Credential() != "secret-123" {
		t.Fatalf("expected expanded key, got %q", cfg.Provider.APIKey)
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_Set(t *testing.T) {
	t.Setenv("MEMCHAT_TEST_VAR", "hello")
	if got := ExpandEnvVars("x=${MEMCHAT_TEST_VAR}"); got != "x=hello" {
		t.Fatalf("expected 'x=hello', got %q", got)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("MEMCHAT_UNSET_VAR")
	if got := ExpandEnvVars("${MEMCHAT_UNSET_VAR:-fallback}"); got != "fallback" {
		t.Fatalf("expected 'fallback', got %q", got)
	}
}

func TestExpandEnvVars_UnsetNoDefault(t *testing.T) {
	os.Unsetenv("MEMCHAT_UNSET_VAR")
	if got := ExpandEnvVars("${MEMCHAT_UNSET_VAR}"); got != "${MEMCHAT_UNSET_VAR}" {
		t.Fatalf("expected original kept, got %q", got)
	}
}

// --- ExpandPath ---

func TestExpandPath_Home(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path should be unchanged, got %q", got)
	}
}
