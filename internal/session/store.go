// Package session saves and restores chat transcripts keyed by user and
// session id on top of a domain.BlobStore.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"memchat/internal/domain"
)

// IDLayout is the timestamp layout of generated session ids.
const IDLayout = "2006-01-02_15-04-05"

// NewID returns a session id derived from t.
func NewID(t time.Time) string {
	return t.Format(IDLayout)
}

var (
	// ErrPersistence matches every error caused by the backing store or codec.
	ErrPersistence = errors.New("session persistence failure")

	// ErrInvalidID is returned for empty ids or ids that contain path separators.
	ErrInvalidID = errors.New("invalid session identifier")
)

// PersistenceError carries the operation and key of a failed store call.
type PersistenceError struct {
	Op        string // save | load | list
	UserID    string
	SessionID string
	Err       error
}

func (e *PersistenceError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("session %s for user %q: %v", e.Op, e.UserID, e.Err)
	}
	return fmt.Sprintf("session %s %q for user %q: %v", e.Op, e.SessionID, e.UserID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Store persists ordered message sequences under {user_id}_{session_id}.
// It holds no cache: every call goes to the blob store.
type Store struct {
	blobs  domain.BlobStore
	logger *slog.Logger
}

func NewStore(blobs domain.BlobStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{blobs: blobs, logger: logger}
}

// Save overwrites the transcript stored for (userID, sessionID).
func (s *Store) Save(ctx context.Context, userID, sessionID string, messages []domain.Message) error {
	key, err := Key(userID, sessionID)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return &PersistenceError{Op: "save", UserID: userID, SessionID: sessionID, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return &PersistenceError{Op: "save", UserID: userID, SessionID: sessionID, Err: err}
	}

	s.logger.Info("session saved", "user", userID, "session", sessionID, "messages", len(messages))
	return nil
}

// Load returns the saved transcript, or an empty one when nothing was saved.
func (s *Store) Load(ctx context.Context, userID, sessionID string) ([]domain.Message, error) {
	key, err := Key(userID, sessionID)
	if err != nil {
		return nil, err
	}

	data, found, err := s.blobs.Get(ctx, key)
	if err != nil {
		return nil, &PersistenceError{Op: "load", UserID: userID, SessionID: sessionID, Err: err}
	}
	if !found {
		s.logger.Debug("session not found, starting empty", "user", userID, "session", sessionID)
		return []domain.Message{}, nil
	}

	messages := []domain.Message{}
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, &PersistenceError{Op: "load", UserID: userID, SessionID: sessionID, Err: fmt.Errorf("decode: %w", err)}
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// ListSessions returns every session id saved for userID, most recent first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidID)
	}
	prefix := keyPrefix(userID)

	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return nil, &PersistenceError{Op: "list", UserID: userID, Err: err}
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if id, ok := strings.CutPrefix(k, prefix); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

// Key returns the blob key for (userID, sessionID).
func Key(userID, sessionID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidID)
	}
	if err := validateSessionID(sessionID); err != nil {
		return "", err
	}
	return keyPrefix(userID) + sessionID, nil
}

func keyPrefix(userID string) string {
	return escapeUserID(userID) + "_"
}

func validateSessionID(id string) error {
	if id == "" || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	if strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// escapeUserID percent-encodes the characters that would let one user's key
// prefix match another user's keys ("_") or leave the storage location.
// Plain ids pass through unchanged.
func escapeUserID(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c == '%' || c == '_' || c == '/' || c == '\\' || c < 0x20:
			fmt.Fprintf(&b, "%%%02X", c)
		case c == '.' && i == 0:
			b.WriteString("%2E")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
