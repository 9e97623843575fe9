package memory

import (
	"fmt"
	"log/slog"
	"sync"
)

// DefaultRecent is the number of entries Recent returns when k <= 0.
const DefaultRecent = 3

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	MaxEntries int // per user; 0 keeps everything
	Logger     *slog.Logger
}

// Ledger keeps the question/answer log of each user for the life of the
// process. It is safe for concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	entries    map[string][]string
	maxEntries int
	logger     *slog.Logger
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Ledger{
		entries:    make(map[string][]string),
		maxEntries: cfg.MaxEntries,
		logger:     cfg.Logger,
	}
}

// FormatEntry renders one exchange the way it is stored.
func FormatEntry(prompt, answer string) string {
	return fmt.Sprintf("Q: %s\nA: %s", prompt, answer)
}

// Record appends one exchange to the user's log.
func (l *Ledger) Record(userID, prompt, answer string) {
	entry := FormatEntry(prompt, answer)

	l.mu.Lock()
	defer l.mu.Unlock()

	list := append(l.entries[userID], entry)
	if l.maxEntries > 0 && len(list) > l.maxEntries {
		dropped := len(list) - l.maxEntries
		list = append([]string(nil), list[dropped:]...)
		l.logger.Debug("memory ledger evicted entries", "user", userID, "dropped", dropped)
	}
	l.entries[userID] = list
}

// Recent returns up to k of the user's latest entries, oldest first.
func (l *Ledger) Recent(userID string, k int) []string {
	if k <= 0 {
		k = DefaultRecent
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	list := l.entries[userID]
	if len(list) > k {
		list = list[len(list)-k:]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// All returns a copy of every entry recorded for the user.
func (l *Ledger) All(userID string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.entries[userID]))
	copy(out, l.entries[userID])
	return out
}

func (l *Ledger) Len(userID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries[userID])
}
