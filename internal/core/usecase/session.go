package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/curdside/cheese-chat/internal/core/domain"
	"github.com/curdside/cheese-chat/internal/core/ports"
)

// SessionDeps bundles the collaborators one chat session orchestrates.
// Store, Events, and Observer are optional.
type SessionDeps struct {
	Classifier ports.QueryClassifier
	Translator ports.FilterTranslator
	Retriever  *HybridRetriever
	Composer   *Composer
	Store      ports.ConversationStore
	Events     ports.EventPublisher
	Observer   ports.TurnObserver

	ClassifyTimeout time.Duration
	Logger          *slog.Logger
}

// ChatSession owns one user's ordered conversation history and serializes
// Ask calls against it. Every Ask appends exactly one user turn and one
// assistant turn, in that order, on every path including degraded ones.
type ChatSession struct {
	id   string
	deps SessionDeps

	mu      sync.Mutex
	history []domain.ConversationTurn
}

func NewChatSession(id string, deps SessionDeps) *ChatSession {
	if deps.ClassifyTimeout <= 0 {
		deps.ClassifyTimeout = 15 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &ChatSession{id: id, deps: deps}
}

// NewChatSessionWithHistory resumes a persisted session.
func NewChatSessionWithHistory(id string, deps SessionDeps, history []domain.ConversationTurn) *ChatSession {
	s := NewChatSession(id, deps)
	s.history = append(s.history, history...)
	return s
}

func (s *ChatSession) ID() string { return s.id }

// History returns a copy of the session's turns.
func (s *ChatSession) History() []domain.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ConversationTurn(nil), s.history...)
}

// Ask runs the full pipeline for one question: classification, filter
// translation, hybrid retrieval, composition. It always produces a
// well-formed ChatResponse; backend failures degrade the answer text and
// never leave the session in a non-idle state.
func (s *ChatSession) Ask(ctx context.Context, question string, filter *domain.FilterPredicate) (*domain.ChatResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("question is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	started := time.Now()
	prior := append([]domain.ConversationTurn(nil), s.history...)
	s.appendTurn(ctx, domain.ConversationTurn{Role: domain.RoleUser, Content: question})

	verdict, degraded := s.decideVerdict(ctx, question, prior)

	var (
		result *domain.RetrievalResult
		answer string
	)
	citations := make([]domain.CatalogItem, 0)

	if verdict == domain.VerdictRetrievable {
		retrieved, err := s.retrieve(ctx, question, filter, prior)
		if err != nil {
			s.deps.Logger.Error("retrieval_failed", "session_id", s.id, "error", err)
			answer = UnavailableAnswer
			degraded = true
		} else {
			result = retrieved
			answer = s.compose(ctx, question, verdict, result, prior)
			if !result.Empty() {
				citations = append(citations, result.Items...)
			}
			degraded = degraded || result.Degraded
		}
	} else {
		answer = s.compose(ctx, question, verdict, nil, prior)
	}

	s.appendTurn(ctx, domain.ConversationTurn{Role: domain.RoleAssistant, Content: answer})

	s.emit(ctx, domain.ChatTurnEvent{
		SessionID:  s.id,
		Question:   question,
		Verdict:    verdict,
		QueryType:  resultQueryType(result),
		ItemCount:  len(citations),
		Degraded:   degraded,
		DurationMS: float64(time.Since(started).Microseconds()) / 1000.0,
		CreatedAt:  time.Now().UTC(),
	})

	return &domain.ChatResponse{
		Answer:  answer,
		Context: citations,
		History: append([]domain.ConversationTurn(nil), s.history...),
	}, nil
}

// decideVerdict resolves whether retrieval runs. Structured patterns the
// catalog store can answer directly (superlatives, price bounds, locations,
// known categories) skip the classifier entirely; for everything else the
// classifier decides, defaulting to NotRetrievable when its output is
// malformed or the model is unreachable.
func (s *ChatSession) decideVerdict(ctx context.Context, question string, history []domain.ConversationTurn) (domain.Verdict, bool) {
	if s.deps.Retriever.MatchesStructuredPattern(question) {
		return domain.VerdictRetrievable, false
	}

	classifyCtx, cancel := context.WithTimeout(ctx, s.deps.ClassifyTimeout)
	defer cancel()

	verdict, err := s.deps.Classifier.Classify(classifyCtx, question, history)
	if err != nil {
		s.deps.Logger.Warn("classification_failed", "session_id", s.id, "error", err)
		return domain.VerdictNotRetrievable, true
	}
	return verdict, false
}

func (s *ChatSession) retrieve(ctx context.Context, question string, filter *domain.FilterPredicate, history []domain.ConversationTurn) (*domain.RetrievalResult, error) {
	effective := s.effectiveFilter(ctx, question, filter)
	return s.deps.Retriever.Retrieve(ctx, question, effective, history)
}

// effectiveFilter prefers a valid caller-supplied predicate and otherwise
// asks the translator. Invalid or malformed predicates from either source
// are discarded: unfiltered retrieval is strictly safer.
func (s *ChatSession) effectiveFilter(ctx context.Context, question string, callerFilter *domain.FilterPredicate) *domain.FilterPredicate {
	if !callerFilter.IsZero() {
		if err := callerFilter.Validate(); err != nil {
			s.deps.Logger.Warn("caller_filter_discarded", "session_id", s.id, "error", err)
		} else {
			return callerFilter
		}
	}
	if s.deps.Translator == nil {
		return nil
	}

	translated, err := s.deps.Translator.Translate(ctx, question)
	if err != nil {
		s.deps.Logger.Warn("filter_translation_discarded", "session_id", s.id, "error", err)
		return nil
	}
	if translated.IsZero() {
		return nil
	}
	if err := translated.Validate(); err != nil {
		s.deps.Logger.Warn("translated_filter_discarded", "session_id", s.id, "error", err)
		return nil
	}
	return translated
}

func (s *ChatSession) compose(ctx context.Context, question string, verdict domain.Verdict, result *domain.RetrievalResult, history []domain.ConversationTurn) string {
	answer, err := s.deps.Composer.Compose(ctx, question, verdict, result, history)
	if err != nil {
		s.deps.Logger.Warn("composition_degraded", "session_id", s.id, "error", err)
	}
	return answer
}

func (s *ChatSession) appendTurn(ctx context.Context, turn domain.ConversationTurn) {
	s.history = append(s.history, turn)
	if s.deps.Store == nil {
		return
	}
	if err := s.deps.Store.AppendTurn(ctx, s.id, turn); err != nil {
		s.deps.Logger.Warn("turn_persistence_failed", "session_id", s.id, "role", turn.Role, "error", err)
	}
}

func (s *ChatSession) emit(ctx context.Context, event domain.ChatTurnEvent) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveChatTurn(event)
	}
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.PublishChatTurn(ctx, event); err != nil {
		s.deps.Logger.Warn("chat_event_publish_failed", "session_id", s.id, "error", err)
	}
}

func resultQueryType(result *domain.RetrievalResult) domain.QueryType {
	if result == nil {
		return domain.QueryTypeNone
	}
	return result.QueryType
}
