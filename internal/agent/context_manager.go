package agent

import (
	"log/slog"

	"memchat/internal/config"
	"memchat/internal/domain"
	"memchat/internal/memory"
	"memchat/internal/metrics"
	"memchat/internal/telecom"
)

// ContextManager assembles the prompt input of a turn from the transcript,
// the user's memory ledger and, for the telecom variant, the reference table.
type ContextManager struct {
	ledger        *memory.Ledger
	references    *telecom.ReferenceSet
	historyWindow int
	memoryWindow  int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

type ContextManagerConfig struct {
	Ledger        *memory.Ledger
	References    *telecom.ReferenceSet // nil disables the references section
	HistoryWindow int
	MemoryWindow  int
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

func NewContextManager(cfg ContextManagerConfig) *ContextManager {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = config.DefaultHistoryWindow
	}
	if cfg.MemoryWindow <= 0 {
		cfg.MemoryWindow = config.DefaultMemoryWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ContextManager{
		ledger:        cfg.Ledger,
		references:    cfg.References,
		historyWindow: cfg.HistoryWindow,
		memoryWindow:  cfg.MemoryWindow,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

// Gather builds the prompt input for input. transcript must already end with
// the user message for this turn. The returned match is MatchNone when no
// reference table is configured.
func (cm *ContextManager) Gather(userID string, transcript []domain.Message, input string) (PromptInput, telecom.Match) {
	in := PromptInput{
		History:  lastMessages(transcript, cm.historyWindow),
		Memories: cm.ledger.Recent(userID, cm.memoryWindow),
		Message:  input,
	}

	var match telecom.Match
	if cm.references != nil {
		match = cm.references.MatchQueries(input)
		in.SystemPrompt = cm.references.SystemPrompt
		in.References = match.Queries
		in.IncludeReferences = true
		cm.metrics.ObserveMatch(match.Kind.String())
		cm.logger.Debug("reference match", "kind", match.Kind.String(), "queries", len(match.Queries))
	}
	return in, match
}
