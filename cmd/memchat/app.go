package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"

	"memchat/internal/config"
	"memchat/internal/domain"
	"memchat/internal/metrics"
	"memchat/internal/session"
	"memchat/internal/storage"
	"memchat/internal/telecom"
)

// newLogger builds the process logger from the general config section.
func newLogger(cfg config.GeneralConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// credentialEnv is read when neither --api-key nor provider.apiKey is set.
const credentialEnv = "GEMINI_API_KEY"

// applyCredential resolves the model key: the flag wins, then the config
// file, then $GEMINI_API_KEY.
func applyCredential(cfg *config.Config, flagKey string) {
	switch {
	case flagKey != "":
		cfg.Provider.APIKey = flagKey
	case cfg.Provider.Credential() == "":
		cfg.Provider.APIKey = os.Getenv(credentialEnv)
	}
}

// writeTranscript prints a saved transcript, as JSON in the session store's
// encoding or as one line per message.
func writeTranscript(w io.Writer, sessionID string, msgs []domain.Message, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(msgs); err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		return nil
	}
	if len(msgs) == 0 {
		_, err := fmt.Fprintf(w, "Session %s has no saved messages.\n", sessionID)
		return err
	}
	for _, m := range msgs {
		if _, err := fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content); err != nil {
			return err
		}
	}
	return nil
}

// openSessions opens the configured blob backend and the session store on
// top of it. The caller closes the returned BlobStore.
func openSessions(cfg *config.Config) (domain.BlobStore, *session.Store, error) {
	blobs, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, nil, err
	}
	return blobs, session.NewStore(blobs, logger), nil
}

// loadReferences returns the telecom reference table. A configured file
// replaces the built-in one.
func loadReferences(cfg *config.Config) (*telecom.ReferenceSet, error) {
	if cfg.Telecom.ReferencesFile == "" {
		return telecom.DefaultReferenceSet(), nil
	}
	refs, err := telecom.LoadReferenceSet(cfg.Telecom.ReferencesFile)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded reference table", "path", cfg.Telecom.ReferencesFile, "categories", len(refs.Categories))
	return refs, nil
}

// serveMetrics starts the Prometheus endpoint in the background.
func serveMetrics(cfg config.MetricsConfig, m *metrics.Metrics) *http.Server {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, m.Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint listening", "addr", cfg.Addr, "endpoint", endpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	return srv
}

func shutdownMetrics(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics server shutdown", "err", err)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
