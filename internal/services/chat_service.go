// Package services – ChatService
//
// ChatService is the chatbot orchestrator. One SendMessage call is one turn:
// resolve the conversation, persist the user message, load the recent
// history, optionally consult the catalog, assemble the system prompt, call
// the LLM and persist the assistant reply.
//
// Durability failures (conversation, turns, history) propagate wrapped in
// ErrUnavailable. Enrichment failures (search, feature decoding) and LLM
// failures never do: search degrades to less context and a failed completion
// is replaced by ApologyMessage, which is persisted like any other reply.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-travel-portal/internal/domain"
	"github.com/tbourn/go-travel-portal/internal/llm"
	"github.com/tbourn/go-travel-portal/internal/lock"
	"github.com/tbourn/go-travel-portal/internal/observability"
	"github.com/tbourn/go-travel-portal/internal/prompt"
	"github.com/tbourn/go-travel-portal/internal/repo"
	"github.com/tbourn/go-travel-portal/internal/search"
)

// ApologyMessage replaces a completion that failed, timed out or had no
// text.
const ApologyMessage = "I'm sorry, I couldn't put together an answer just now. Please try again in a moment, or browse our directory for lodges, tours and campsites."

// Defaults applied when the corresponding ChatService field is zero.
const (
	DefaultHistoryWindow  = 10
	DefaultLLMTimeout     = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
)

var defaultSuggestions = []string{
	"What are the best lodges near Sossusvlei?",
	"Recommend a safari tour in Etosha National Park",
	"When is the best time to visit Namibia?",
	"Where can I hire a 4x4 in Windhoek?",
	"Suggest a campsite along the Skeleton Coast",
	"What should I pack for a desert trip?",
}

// Searcher is the catalog view the orchestrator needs.
type Searcher interface {
	Search(ctx context.Context, query string, f repo.ListingFilter, limit int) ([]domain.SearchResult, error)
	Featured(ctx context.Context, categorySlug string, limit int) ([]domain.SearchResult, error)
}

// ChatService orchestrates chatbot turns.
type ChatService struct {
	DB      *gorm.DB
	LLM     llm.Client
	Search  Searcher
	Trigger search.TriggerClassifier
	Prompt  *prompt.Assembler
	// Locker serializes turns per conversation and per idempotency key;
	// nil disables it.
	Locker  lock.Locker
	Metrics *observability.ChatMetrics

	Model       string
	MaxTokens   int
	Temperature *float64

	HistoryWindow   int
	SearchLimit     int
	MaxMessageRunes int
	LLMTimeout      time.Duration
	IdempotencyTTL  time.Duration

	// Now is overridable in tests.
	Now func() time.Time
}

// SendInput is one user turn.
type SendInput struct {
	Message        string
	SessionID      string
	ConversationID *uint
	UserID         string
	// IdempotencyKey, when set, makes retries of the same turn replay the
	// stored reply.
	IdempotencyKey string
}

// SendResult is the reply to a turn.
type SendResult struct {
	ConversationID uint
	MessageID      uint
	Message        string
	Replayed       bool
}

// HistoryMessage is one entry of a conversation transcript.
type HistoryMessage struct {
	ID        uint      `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// SendMessage runs one chat turn. See the package comment for the failure
// policy.
func (s *ChatService) SendMessage(ctx context.Context, in SendInput) (*SendResult, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "SendMessage",
		trace.WithAttributes(attribute.String("session.id", in.SessionID)),
	)
	defer span.End()

	msg := strings.TrimSpace(in.Message)
	switch {
	case msg == "":
		return nil, ErrEmptyMessage
	case s.MaxMessageRunes > 0 && utf8.RuneCountInString(msg) > s.MaxMessageRunes:
		return nil, ErrMessageTooLong
	case strings.TrimSpace(in.SessionID) == "":
		return nil, ErrMissingSession
	}

	if in.IdempotencyKey != "" {
		// Held until the record is stored so a retry racing the first call
		// waits for it and replays instead of running a second turn.
		unlockKey, err := s.acquire(ctx, idempotencyLockKey(in.SessionID, in.IdempotencyKey))
		if err != nil {
			return nil, unavailable("lock idempotency key", err)
		}
		defer unlockKey()

		res, ok, err := s.replay(ctx, in)
		if err != nil {
			return nil, err
		}
		if ok {
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return res, nil
		}
	}

	conv, err := s.resolveConversation(ctx, in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("conversation.id", int64(conv.ID)))

	unlock, err := s.acquire(ctx, conversationLockKey(conv.ID))
	if err != nil {
		return nil, unavailable("lock conversation", err)
	}
	defer unlock()

	if _, err := repo.CreateMessage(ctx, s.DB, conv.ID, domain.RoleUser, msg); err != nil {
		span.RecordError(err)
		return nil, unavailable("persist user message", err)
	}

	history, err := repo.ListRecentMessages(ctx, s.DB, conv.ID, s.historyWindow())
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("load history", err)
	}

	results, mode := s.retrieve(ctx, msg)
	span.SetAttributes(attribute.String("chat.context", mode.String()))

	reply := s.complete(ctx, s.Prompt.Build(results, mode), history)

	am, err := repo.CreateMessage(ctx, s.DB, conv.ID, domain.RoleAssistant, reply)
	if err != nil {
		span.RecordError(err)
		return nil, unavailable("persist assistant message", err)
	}

	logger := zerolog.Ctx(ctx)
	if err := repo.TouchConversation(ctx, s.DB, conv.ID); err != nil {
		logger.Warn().Err(err).Uint("conversation_id", conv.ID).Msg("touch conversation failed")
	}
	if in.IdempotencyKey != "" {
		if _, err := repo.CreateIdempotency(ctx, s.DB, in.SessionID, in.IdempotencyKey, conv.ID, am.ID, s.idempotencyTTL()); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			logger.Warn().Err(err).Msg("store idempotency record failed")
		}
	}

	return &SendResult{ConversationID: conv.ID, MessageID: am.ID, Message: reply}, nil
}

// GetConversation returns the conversation's messages oldest first. A
// missing conversation and a store failure both yield an empty list; the
// failure is logged.
func (s *ChatService) GetConversation(ctx context.Context, conversationID uint) []HistoryMessage {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "GetConversation",
		trace.WithAttributes(attribute.Int64("conversation.id", int64(conversationID))),
	)
	defer span.End()

	msgs, err := repo.ListMessages(ctx, s.DB, conversationID, 0)
	if err != nil {
		span.RecordError(err)
		zerolog.Ctx(ctx).Error().Err(err).Uint("conversation_id", conversationID).Msg("load conversation failed")
		return []HistoryMessage{}
	}
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt})
	}
	return out
}

// ConversationStats returns the number of messages in a conversation and
// the time of the newest one (nil when there are none).
func (s *ChatService) ConversationStats(ctx context.Context, conversationID uint) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, s.DB, conversationID)
}

// Suggestions returns the fixed example prompts shown before a chat starts.
func (s *ChatService) Suggestions() []string {
	out := make([]string, len(defaultSuggestions))
	copy(out, defaultSuggestions)
	return out
}

func (s *ChatService) resolveConversation(ctx context.Context, in SendInput) (*domain.Conversation, error) {
	if in.ConversationID == nil {
		conv, err := repo.CreateConversation(ctx, s.DB, in.SessionID, in.UserID)
		if err != nil {
			return nil, unavailable("create conversation", err)
		}
		return conv, nil
	}
	conv, err := repo.GetConversation(ctx, s.DB, *in.ConversationID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, unavailable("load conversation", err)
	}
	return conv, nil
}

func (s *ChatService) acquire(ctx context.Context, key string) (lock.Unlock, error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	return s.Locker.Lock(ctx, key)
}

func conversationLockKey(id uint) string {
	return "conversation:" + strconv.FormatUint(uint64(id), 10)
}

func idempotencyLockKey(sessionID, key string) string {
	return "idempotency:" + sessionID + ":" + key
}

// replay returns the stored reply for (session, key) if one is live. A key
// recorded against another conversation than the one requested is refused.
func (s *ChatService) replay(ctx context.Context, in SendInput) (*SendResult, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, in.SessionID, in.IdempotencyKey, s.now())
	if err != nil {
		return nil, false, nil
	}
	if in.ConversationID != nil && *in.ConversationID != rec.ConversationID {
		return nil, false, ErrIdempotencyKeyReused
	}
	m, err := repo.GetMessage(ctx, s.DB, rec.MessageID)
	if err != nil {
		return nil, false, nil
	}
	return &SendResult{ConversationID: rec.ConversationID, MessageID: m.ID, Message: m.Content, Replayed: true}, true, nil
}

// retrieve decides whether to consult the catalog and with what result.
// Keyword matches win; otherwise featured listings (hinted category first,
// then any) are offered as general suggestions.
func (s *ChatService) retrieve(ctx context.Context, msg string) ([]domain.SearchResult, prompt.ContextMode) {
	if s.Search == nil || s.Trigger == nil || !s.Trigger.ShouldSearch(msg) {
		s.Metrics.ObserveSearch(observability.SearchSkipped)
		return nil, prompt.ContextNone
	}
	logger := zerolog.Ctx(ctx)
	limit := s.searchLimit()

	results, err := s.Search.Search(ctx, msg, repo.ListingFilter{}, limit)
	if err != nil {
		logger.Warn().Err(err).Msg("listing search failed")
		s.Metrics.ObserveSearch(observability.SearchError)
	} else if len(results) > 0 {
		s.Metrics.ObserveSearch(observability.SearchHit)
		return results, prompt.ContextMatches
	}

	hint := s.Trigger.CategoryHint(msg)
	featured, err := s.Search.Featured(ctx, hint, limit)
	if err == nil && len(featured) == 0 && hint != "" {
		featured, err = s.Search.Featured(ctx, "", limit)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("featured listings failed")
		return nil, prompt.ContextNone
	}
	if len(featured) == 0 {
		return nil, prompt.ContextNone
	}
	s.Metrics.ObserveSearch(observability.SearchFallback)
	return featured, prompt.ContextFeatured
}

// complete calls the LLM with the system prompt followed by history and
// returns its text, or ApologyMessage on any failure.
func (s *ChatService) complete(ctx context.Context, system string, history []domain.Message) string {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "complete",
		trace.WithAttributes(attribute.Int("llm.history", len(history))),
	)
	defer span.End()

	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}

	timeout := s.LLMTimeout
	if timeout <= 0 {
		timeout = DefaultLLMTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	text, err := llm.Complete(cctx, s.LLM, llm.Request{
		Model:       s.Model,
		Messages:    msgs,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
	})
	elapsed := time.Since(start)

	if err == nil {
		s.Metrics.ObserveLLM(observability.LLMSuccess, elapsed)
		return text
	}

	span.RecordError(err)
	outcome := observability.LLMError
	if llm.IsTimeout(err) {
		outcome = observability.LLMTimeout
	}
	s.Metrics.ObserveLLM(outcome, elapsed)
	zerolog.Ctx(ctx).Warn().Err(err).Str("outcome", outcome).Dur("elapsed", elapsed).Msg("llm completion failed, sending apology")
	return ApologyMessage
}

func (s *ChatService) historyWindow() int {
	if s.HistoryWindow > 0 {
		return s.HistoryWindow
	}
	return DefaultHistoryWindow
}

func (s *ChatService) searchLimit() int {
	if s.SearchLimit > 0 {
		return s.SearchLimit
	}
	return DefaultSearchLimit
}

func (s *ChatService) idempotencyTTL() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return DefaultIdempotencyTTL
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
