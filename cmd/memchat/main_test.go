package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memchat/internal/config"
	"memchat/internal/domain"
	"memchat/internal/session"
	"memchat/internal/storage"
)

func TestMain(m *testing.M) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	os.Exit(m.Run())
}

func TestNewLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	newLogger(config.GeneralConfig{LogLevel: "debug", LogFormat: "json"}, &buf).Debug("hello", "k", "v")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"k":"v"`) {
		t.Fatalf("expected JSON output, got %q", buf.String())
	}

	buf.Reset()
	newLogger(config.GeneralConfig{LogLevel: "warn"}, &buf).Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("DEBUG") != slog.LevelDebug || parseLevel("warning") != slog.LevelWarn || parseLevel("") != slog.LevelInfo {
		t.Fatal("unexpected level mapping")
	}
}

func TestRoundTrip_FileStoreLeavesNothingBehind(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	blobs := storage.NewFileStore(dir, logger)

	if err := roundTrip(context.Background(), blobs); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	keys, err := blobs.List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 0 {
		t.Fatalf("round trip left keys behind: %v", keys)
	}
}

func TestLoadReferences(t *testing.T) {
	cfg := config.Defaults()
	refs, err := loadReferences(cfg)
	if err != nil || len(refs.Categories) != 3 {
		t.Fatalf("expected built-in table, got %v (err %v)", refs, err)
	}

	cfg.Telecom.ReferencesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := loadReferences(cfg); err == nil {
		t.Fatal("expected error for missing reference file")
	}
}

func TestApplyCredential_Order(t *testing.T) {
	t.Setenv(credentialEnv, "env-key")

	cfg := config.Defaults()
	cfg.Provider.APIKey = config.APIKeyPlaceholder
	applyCredential(cfg, "")
	if cfg.Provider.Credential() != "env-key" {
		t.Fatalf("expected env fallback, got %q", cfg.Provider.APIKey)
	}

	cfg = config.Defaults()
	cfg.Provider.APIKey = "file-key"
	applyCredential(cfg, "")
	if cfg.Provider.Credential() != "file-key" {
		t.Fatalf("config key should win over env, got %q", cfg.Provider.APIKey)
	}

	applyCredential(cfg, "flag-key")
	if cfg.Provider.Credential() != "flag-key" {
		t.Fatalf("flag should win, got %q", cfg.Provider.APIKey)
	}
}

func TestCheckProvider_UsesEnvCredential(t *testing.T) {
	cfg := config.Defaults()
	cfg.Provider.APIKey = config.APIKeyPlaceholder

	t.Setenv(credentialEnv, "")
	if status, detail := checkProvider(cfg); status != checkWarn {
		t.Fatalf("expected warning without any key, got %v: %s", status, detail)
	}

	t.Setenv(credentialEnv, "env-key")
	if status, detail := checkProvider(cfg); status != checkPass {
		t.Fatalf("expected pass with env key, got %v: %s", status, detail)
	}
	if cfg.Provider.APIKey != config.APIKeyPlaceholder {
		t.Fatal("checkProvider must not modify the loaded config")
	}

	cfg.Provider.Name = "ollama"
	if status, _ := checkProvider(cfg); status != checkFail {
		t.Fatalf("expected failure for unknown provider, got %v", status)
	}
}

func TestWriteTranscript_JSONMatchesStoredFormat(t *testing.T) {
	dir := t.TempDir()
	blobs := storage.NewFileStore(dir, logger)
	store := session.NewStore(blobs, logger)
	msgs := []domain.Message{domain.UserMessage("hi \"there\""), domain.AssistantMessage("<hello> & bye")}
	if err := store.Save(context.Background(), "alice", "s1", msgs); err != nil {
		t.Fatal(err)
	}
	loaded, err := store.Load(context.Background(), "alice", "s1")
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeTranscript(&buf, "s1", loaded, true); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, want := range []string{`"role": "user"`, `"content": "<hello> & bye"`} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("expected %s in output:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := writeTranscript(&buf, "s1", loaded, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "[user] hi \"there\"\n[assistant] <hello> & bye\n" {
		t.Fatalf("unexpected text output: %q", buf.String())
	}

	buf.Reset()
	if err := writeTranscript(&buf, "empty", nil, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Session empty has no saved messages.") {
		t.Fatalf("unexpected output for empty transcript: %q", buf.String())
	}
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if isTerminal(f) {
		t.Fatal("a regular file is not a terminal")
	}
}
