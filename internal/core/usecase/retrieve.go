package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curdside/cheese-chat/internal/core/domain"
	"github.com/curdside/cheese-chat/internal/core/ports"
)

// RetrieverConfig carries the fixed retrieval knobs. Zero values fall back
// to defaults in NewHybridRetriever.
type RetrieverConfig struct {
	TopK             int
	SuperlativeLimit int
	BudgetPriceCap   float64
	BackendTimeout   time.Duration
	HistoryWindow    int
	Categories       []string
}

// HybridRetriever dispatches a question to the structured store or the
// vector index and retries at most once on the other modality. No call
// issues more than two retrieval backend round-trips.
type HybridRetriever struct {
	embedder ports.Embedder
	vector   ports.VectorIndex
	catalog  ports.CatalogStore
	patterns *patternDetector
	cfg      RetrieverConfig
	logger   *slog.Logger
}

func NewHybridRetriever(
	embedder ports.Embedder,
	vector ports.VectorIndex,
	catalog ports.CatalogStore,
	cfg RetrieverConfig,
	logger *slog.Logger,
) *HybridRetriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.SuperlativeLimit <= 0 {
		cfg.SuperlativeLimit = 5
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = 10 * time.Second
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridRetriever{
		embedder: embedder,
		vector:   vector,
		catalog:  catalog,
		patterns: newPatternDetector(cfg.Categories, cfg.BudgetPriceCap),
		cfg:      cfg,
		logger:   logger,
	}
}

// MatchesStructuredPattern reports whether the structured store can serve
// the question directly, regardless of the classifier verdict.
func (r *HybridRetriever) MatchesStructuredPattern(question string) bool {
	return r.patterns.matchesStructured(question)
}

// Retrieve runs the dispatch-with-fallback algorithm. An empty result with
// a nil error is a legitimate zero-match outcome; an error means both the
// primary and the fallback path failed.
func (r *HybridRetriever) Retrieve(
	ctx context.Context,
	question string,
	filter *domain.FilterPredicate,
	history []domain.ConversationTurn,
) (*domain.RetrievalResult, error) {
	filter = r.sanitizeFilter(filter)

	// An explicit attribute predicate pins the question to the semantic
	// path with a metadata filter; lexical pattern dispatch only applies
	// to unconstrained questions.
	dispatch := queryDispatch{kind: kindSemantic}
	if filter.IsZero() {
		dispatch = r.patterns.detect(question)
	}

	if dispatch.kind == kindSemantic {
		return r.semanticPrimary(ctx, question, filter, history)
	}
	return r.structuredPrimary(ctx, question, dispatch)
}

func (r *HybridRetriever) structuredPrimary(ctx context.Context, question string, dispatch queryDispatch) (*domain.RetrievalResult, error) {
	items, primaryErr := r.structuredQuery(ctx, dispatch)
	if primaryErr == nil && len(items) > 0 {
		return &domain.RetrievalResult{Items: items, QueryType: domain.QueryTypeStructured}, nil
	}
	if primaryErr != nil {
		r.logger.Warn("structured_path_failed", "question", question, "error", primaryErr)
	}

	// Single fallback: embed the original question, no filter.
	fallbackItems, fallbackErr := r.semanticQuery(ctx, question, nil)
	if fallbackErr != nil {
		if primaryErr != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "retrieve", fmt.Errorf("structured: %w; semantic fallback: %w", primaryErr, fallbackErr))
		}
		r.logger.Warn("semantic_fallback_failed", "question", question, "error", fallbackErr)
		return &domain.RetrievalResult{QueryType: domain.QueryTypeStructured}, nil
	}
	if len(fallbackItems) == 0 && primaryErr == nil {
		return &domain.RetrievalResult{QueryType: domain.QueryTypeStructured}, nil
	}
	return &domain.RetrievalResult{
		Items:     fallbackItems,
		QueryType: domain.QueryTypeStructuredSemantic,
		Degraded:  primaryErr != nil,
	}, nil
}

func (r *HybridRetriever) semanticPrimary(
	ctx context.Context,
	question string,
	filter *domain.FilterPredicate,
	history []domain.ConversationTurn,
) (*domain.RetrievalResult, error) {
	items, primaryErr := r.semanticQuery(ctx, refineQuery(question, history, r.cfg.HistoryWindow), filter)
	if primaryErr == nil && len(items) > 0 {
		return &domain.RetrievalResult{Items: items, QueryType: domain.QueryTypeSemantic}, nil
	}
	if primaryErr != nil {
		r.logger.Warn("semantic_path_failed", "question", question, "error", primaryErr)
	}

	// Single fallback: lexical search on the structured store, filterless.
	fallbackItems, fallbackErr := r.lexicalQuery(ctx, question)
	if fallbackErr != nil {
		if primaryErr != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "retrieve", fmt.Errorf("semantic: %w; lexical fallback: %w", primaryErr, fallbackErr))
		}
		r.logger.Warn("lexical_fallback_failed", "question", question, "error", fallbackErr)
		return &domain.RetrievalResult{QueryType: domain.QueryTypeSemantic}, nil
	}
	if len(fallbackItems) == 0 && primaryErr == nil {
		return &domain.RetrievalResult{QueryType: domain.QueryTypeSemantic}, nil
	}
	return &domain.RetrievalResult{
		Items:     fallbackItems,
		QueryType: domain.QueryTypeSemanticLexical,
		Degraded:  primaryErr != nil,
	}, nil
}

func (r *HybridRetriever) structuredQuery(ctx context.Context, dispatch queryDispatch) ([]domain.CatalogItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.BackendTimeout)
	defer cancel()

	switch dispatch.kind {
	case kindSuperlative:
		return r.catalog.TopByPrice(callCtx, domain.PriceDescending, r.cfg.SuperlativeLimit)
	case kindPriceBound:
		return r.catalog.ByPriceRange(callCtx, 0, dispatch.maxPrice)
	case kindLocation:
		return r.catalog.ByLocation(callCtx, dispatch.location)
	case kindCategory:
		return r.catalog.ByType(callCtx, dispatch.category)
	default:
		return nil, fmt.Errorf("unexpected structured dispatch kind %d", dispatch.kind)
	}
}

func (r *HybridRetriever) semanticQuery(ctx context.Context, query string, filter *domain.FilterPredicate) ([]domain.CatalogItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.BackendTimeout)
	defer cancel()

	vector, err := r.embedder.EmbedQuery(callCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "embed query", fmt.Errorf("empty embedding"))
	}

	items, err := r.vector.TopK(callCtx, vector, r.cfg.TopK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return items, nil
}

func (r *HybridRetriever) lexicalQuery(ctx context.Context, question string) ([]domain.CatalogItem, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.BackendTimeout)
	defer cancel()
	return r.catalog.LexicalSearch(callCtx, question)
}

// sanitizeFilter drops predicates that reference fields outside the fixed
// schema: retrieval under no filter is strictly safer than retrieval under
// a malformed one.
func (r *HybridRetriever) sanitizeFilter(filter *domain.FilterPredicate) *domain.FilterPredicate {
	if filter.IsZero() {
		return nil
	}
	if err := filter.Validate(); err != nil {
		r.logger.Warn("filter_discarded", "fields", filter.FieldNames(), "error", err)
		return nil
	}
	return filter
}

// refineQuery prepends a window of prior turns so context-dependent
// follow-ups ("the one from before") embed with their referent.
func refineQuery(question string, history []domain.ConversationTurn, window int) string {
	if len(history) == 0 {
		return question
	}
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	var b strings.Builder
	b.WriteString("Given the previous conversation:\n")
	for _, turn := range history {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("User's new question: ")
	b.WriteString(question)
	return b.String()
}
