package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/curdside/cheese-chat/internal/core/domain"
	"github.com/curdside/cheese-chat/internal/core/ports"
)

const (
	// NoMatchAnswer is returned without invoking the generative model when
	// retrieval legitimately found nothing to ground an answer on.
	NoMatchAnswer = "I couldn't find any products in the catalog matching that request. Try rephrasing, or ask about a cheese type, brand, or price range."

	// UnavailableAnswer is returned when both retrieval paths failed.
	UnavailableAnswer = "Product search is temporarily unavailable. Please ask again in a moment."

	// FallbackAnswer is returned when the generative model itself could
	// not be reached for a conversational or grounded reply.
	FallbackAnswer = "I can't produce an answer right now. Please ask again in a moment."
)

// Composer builds the final answer text for one turn. Empty retrieval
// results short-circuit to canned text so nothing is hallucinated; LLM
// failures degrade to fixed text, never to an error at the public boundary.
type Composer struct {
	generator ports.AnswerGenerator
	timeout   time.Duration
	logger    *slog.Logger
}

func NewComposer(generator ports.AnswerGenerator, timeout time.Duration, logger *slog.Logger) *Composer {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{generator: generator, timeout: timeout, logger: logger}
}

// Compose returns the answer text for the turn. The returned error is
// informational: the text is always usable as-is.
func (c *Composer) Compose(
	ctx context.Context,
	question string,
	verdict domain.Verdict,
	result *domain.RetrievalResult,
	history []domain.ConversationTurn,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if verdict != domain.VerdictRetrievable {
		answer, err := c.generator.GenerateConversational(callCtx, question, history)
		if err != nil {
			c.logger.Warn("conversational_generation_failed", "error", err)
			return FallbackAnswer, err
		}
		return answer, nil
	}

	if result.Empty() {
		return NoMatchAnswer, nil
	}

	answer, err := c.generator.GenerateGrounded(callCtx, question, result.Items, history)
	if err != nil {
		c.logger.Warn("grounded_generation_failed", "error", err)
		return FallbackAnswer, err
	}
	return answer, nil
}
