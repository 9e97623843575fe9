package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"memchat/internal/config"
	"memchat/internal/domain"
	"memchat/internal/memory"
	"memchat/internal/metrics"
	"memchat/internal/session"
	"memchat/internal/telecom"
)

const defaultModelTimeout = 120 * time.Second

var (
	ErrMissingUser       = errors.New("user id is required")
	ErrMissingCredential = errors.New("model API key is required")
	ErrEmptyInput        = errors.New("message is empty")

	// ErrModelFailure wraps every failed model call. ErrEmptyResponse matches it too.
	ErrModelFailure  = errors.New("model request failed")
	ErrEmptyResponse = fmt.Errorf("%w: empty response", ErrModelFailure)
)

// State is the turn state of a Conversation.
type State int

const (
	StateIdle State = iota
	StateAwaitingModel
	StateError
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// ConversationConfig holds the dependencies of one user's conversation.
type ConversationConfig struct {
	UserID     string
	SessionID  string // empty starts a new timestamped session
	Variant    string // config.VariantGeneral | config.VariantTelecom
	Provider   domain.Provider
	Generation domain.GenerationConfig
	Sessions   *session.Store
	Ledger     *memory.Ledger
	References *telecom.ReferenceSet // telecom variant; defaults to the built-in table
	Locks      *UserLocks            // shared between conversations of one process

	HistoryWindow int
	MemoryWindow  int
	ModelTimeout  time.Duration

	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// Conversation runs the turns of one user: compose a prompt from the
// transcript, memories and references, call the model, and commit the
// exchange only when the model answered.
type Conversation struct {
	userID     string
	variant    string
	provider   domain.Provider
	generation domain.GenerationConfig
	sessions   *session.Store
	ledger     *memory.Ledger
	references *telecom.ReferenceSet
	locks      *UserLocks
	gatherer   *ContextManager
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	turnMu sync.Mutex // serializes turns and session switches

	mu         sync.RWMutex
	state      State
	lastErr    error
	sessionID  string
	transcript []domain.Message
	topic      telecom.TopicContext
}

// NewConversation validates the preconditions of a chat and returns an idle
// conversation with an empty transcript.
func NewConversation(cfg ConversationConfig) (*Conversation, error) {
	if strings.TrimSpace(cfg.UserID) == "" {
		return nil, ErrMissingUser
	}
	if cfg.Provider == nil {
		return nil, ErrMissingCredential
	}
	if cp, ok := cfg.Provider.(domain.CredentialedProvider); ok && !cp.HasCredential() {
		return nil, ErrMissingCredential
	}
	if cfg.Sessions == nil || cfg.Ledger == nil {
		return nil, fmt.Errorf("conversation requires a session store and a memory ledger")
	}

	if cfg.Variant == "" {
		cfg.Variant = config.VariantGeneral
	}
	var refs *telecom.ReferenceSet
	switch cfg.Variant {
	case config.VariantGeneral:
	case config.VariantTelecom:
		refs = cfg.References
		if refs == nil {
			refs = telecom.DefaultReferenceSet()
		}
	default:
		return nil, fmt.Errorf("unknown variant %q", cfg.Variant)
	}

	if cfg.Generation == (domain.GenerationConfig{}) {
		cfg.Generation = domain.DefaultGenerationConfig()
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = defaultModelTimeout
	}
	if cfg.Locks == nil {
		cfg.Locks = NewUserLocks()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = session.NewID(cfg.Now())
	}

	logger := cfg.Logger.With("user", cfg.UserID)
	return &Conversation{
		userID:     cfg.UserID,
		variant:    cfg.Variant,
		provider:   cfg.Provider,
		generation: cfg.Generation,
		sessions:   cfg.Sessions,
		ledger:     cfg.Ledger,
		references: refs,
		locks:      cfg.Locks,
		gatherer: NewContextManager(ContextManagerConfig{
			Ledger:        cfg.Ledger,
			References:    refs,
			HistoryWindow: cfg.HistoryWindow,
			MemoryWindow:  cfg.MemoryWindow,
			Metrics:       cfg.Metrics,
			Logger:        logger,
		}),
		timeout:    cfg.ModelTimeout,
		metrics:    cfg.Metrics,
		logger:     logger,
		now:        cfg.Now,
		sessionID:  sessionID,
		transcript: []domain.Message{},
	}, nil
}

// Send runs one turn and returns the model's answer. On failure the
// transcript, ledger and topic context are left as they were.
func (c *Conversation) Send(ctx context.Context, input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", ErrEmptyInput
	}

	c.turnMu.Lock()
	defer c.turnMu.Unlock()
	unlock := c.locks.Lock(c.userID)
	defer unlock()

	c.mu.Lock()
	c.state = StateAwaitingModel
	candidate := make([]domain.Message, 0, len(c.transcript)+2)
	candidate = append(candidate, c.transcript...)
	candidate = append(candidate, domain.UserMessage(input))
	sessionID := c.sessionID
	c.mu.Unlock()

	turnID := uuid.NewString()
	logger := c.logger.With("turn_id", turnID, "session", sessionID)

	in, match := c.gatherer.Gather(c.userID, candidate, input)
	prompt := Compose(in)
	c.metrics.ObservePrompt(len(prompt))

	logger.Info("sending turn",
		"variant", c.variant,
		"input_len", len(input),
		"prompt_len", len(prompt),
		"history", len(in.History),
		"memories", len(in.Memories),
	)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	answer, err := c.provider.Generate(callCtx, prompt, c.generation)
	elapsed := time.Since(start)
	c.metrics.ObserveModel(c.provider.Name(), elapsed)

	if err != nil {
		logger.Error("model request failed", "provider", c.provider.Name(), "latency", elapsed, "err", err)
		err = fmt.Errorf("%w: %w", ErrModelFailure, err)
		c.fail(err)
		c.metrics.ObserveTurn(c.variant, metrics.OutcomeModelError)
		return "", err
	}
	if strings.TrimSpace(answer) == "" {
		logger.Warn("model returned an empty response", "provider", c.provider.Name(), "latency", elapsed)
		c.fail(ErrEmptyResponse)
		c.metrics.ObserveTurn(c.variant, metrics.OutcomeEmptyResponse)
		return "", ErrEmptyResponse
	}

	c.mu.Lock()
	c.transcript = append(candidate, domain.AssistantMessage(answer))
	if match.Kind == telecom.MatchCategory {
		if topic, ok := c.references.InferTopic(input); ok {
			c.topic.Observe(topic)
		}
	}
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.ledger.Record(c.userID, input, answer)
	c.metrics.ObserveTurn(c.variant, metrics.OutcomeOK)

	logger.Info("turn completed", "latency", elapsed, "answer_len", len(answer), "match", match.Kind.String())
	return answer, nil
}

func (c *Conversation) fail(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastErr = err
	c.mu.Unlock()
}

// NewSession starts an empty transcript under a fresh timestamped session id.
// Memories and topics are kept.
func (c *Conversation) NewSession() string {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	id := session.NewID(c.now())
	c.mu.Lock()
	c.sessionID = id
	c.transcript = []domain.Message{}
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("new session started", "session", id)
	return id
}

// Save writes the current transcript under the current session id.
func (c *Conversation) Save(ctx context.Context) error {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	c.mu.RLock()
	id := c.sessionID
	msgs := c.transcriptCopy()
	c.mu.RUnlock()

	err := c.sessions.Save(ctx, c.userID, id, msgs)
	c.metrics.ObserveSessionOp("save", err)
	return err
}

// Load replaces the transcript with the saved session id and switches to it.
// A session that was never saved loads as an empty transcript.
func (c *Conversation) Load(ctx context.Context, sessionID string) error {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	msgs, err := c.sessions.Load(ctx, c.userID, sessionID)
	c.metrics.ObserveSessionOp("load", err)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.transcript = msgs
	c.state = StateIdle
	c.lastErr = nil
	c.mu.Unlock()

	c.logger.Info("session loaded", "session", sessionID, "messages", len(msgs))
	return nil
}

// Sessions lists the user's saved session ids, newest first.
func (c *Conversation) Sessions(ctx context.Context) ([]string, error) {
	ids, err := c.sessions.ListSessions(ctx, c.userID)
	c.metrics.ObserveSessionOp("list", err)
	return ids, err
}

func (c *Conversation) Transcript() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transcriptCopy()
}

func (c *Conversation) transcriptCopy() []domain.Message {
	out := make([]domain.Message, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// Memories returns every ledger entry of the user.
func (c *Conversation) Memories() []string {
	return c.ledger.All(c.userID)
}

// Topic returns the current topic and the topics it replaced.
func (c *Conversation) Topic() (current telecom.Topic, ok bool, previous []telecom.Topic) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	current, ok = c.topic.Current()
	return current, ok, c.topic.Previous()
}

func (c *Conversation) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastError returns the failure that put the conversation in StateError.
func (c *Conversation) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Conversation) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Conversation) UserID() string   { return c.userID }
func (c *Conversation) Variant() string  { return c.variant }
func (c *Conversation) Provider() string { return c.provider.Name() }
