package ports

import (
	"context"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

// ChatService is the single inbound contract consumed by the UI layer. The
// UI renders the answer and iterates Context for product cards; it performs
// no retrieval logic itself.
type ChatService interface {
	CreateSession(ctx context.Context) (string, error)
	Ask(ctx context.Context, sessionID, question string, filter *domain.FilterPredicate) (*domain.ChatResponse, error)
	History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)
}
