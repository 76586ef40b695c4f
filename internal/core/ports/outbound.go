package ports

import (
	"context"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

// Embedder turns query text into a fixed-dimension vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex performs nearest-neighbor search with an optional
// schema-validated metadata predicate.
type VectorIndex interface {
	TopK(ctx context.Context, vector []float32, k int, filter *domain.FilterPredicate) ([]domain.CatalogItem, error)
}

// CatalogStore exposes exact/range queries over catalog attributes. Empty
// result sets return a nil error; only connectivity failures error out.
type CatalogStore interface {
	TopByPrice(ctx context.Context, order domain.PriceOrder, limit int) ([]domain.CatalogItem, error)
	ByPriceRange(ctx context.Context, minPrice, maxPrice float64) ([]domain.CatalogItem, error)
	ByLocation(ctx context.Context, location string) ([]domain.CatalogItem, error)
	ByType(ctx context.Context, cheeseType string) ([]domain.CatalogItem, error)
	LexicalSearch(ctx context.Context, query string) ([]domain.CatalogItem, error)
}

// QueryClassifier decides whether a question is answerable by retrieval at
// all. A response that does not parse to one of the two labels surfaces as
// ErrMalformedModelOutput; the caller picks the safe default.
type QueryClassifier interface {
	Classify(ctx context.Context, question string, history []domain.ConversationTurn) (domain.Verdict, error)
}

// FilterTranslator turns free text into a schema-constrained predicate, or
// nil when the question carries no attribute constraints.
type FilterTranslator interface {
	Translate(ctx context.Context, question string) (*domain.FilterPredicate, error)
}

// AnswerGenerator produces the user-facing answer text. Grounded answers
// cite only the supplied items; conversational answers rely on history and
// the assistant's scope rules.
type AnswerGenerator interface {
	GenerateGrounded(ctx context.Context, question string, items []domain.CatalogItem, history []domain.ConversationTurn) (string, error)
	GenerateConversational(ctx context.Context, question string, history []domain.ConversationTurn) (string, error)
}

// ConversationStore persists turns so a session can be resumed by id.
// In-process history remains the source of truth while a session is live.
// ListTurns reports ErrSessionNotFound for ids that were never created.
type ConversationStore interface {
	EnsureSession(ctx context.Context, sessionID string) error
	AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error
	ListTurns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)
}

// EventPublisher emits per-ask analytics events. Publish failures must
// never affect the chat response.
type EventPublisher interface {
	PublishChatTurn(ctx context.Context, event domain.ChatTurnEvent) error
}

// TurnObserver receives a synchronous in-process copy of each chat turn
// outcome, used for metrics.
type TurnObserver interface {
	ObserveChatTurn(event domain.ChatTurnEvent)
}
