package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/curdside/cheese-chat/internal/core/domain"
	"github.com/curdside/cheese-chat/internal/infrastructure/resilience"
)

// GenOptions are the fixed sampling knobs for one generation profile.
// They come from configuration, never from per-call decisions.
type GenOptions struct {
	Temperature float64
	MaxTokens   int
}

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Embedder implements ports.Embedder.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	request := map[string]any{
		"model": e.client.embedModel,
		"input": []string{text},
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) == 0 {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "embed", fmt.Errorf("empty embedding result"))
	}
	return response.Embeddings[0], nil
}

// Classifier implements ports.QueryClassifier. The model is constrained to
// a single-field JSON payload; anything else is malformed model output and
// the caller decides the safe default.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, question string, history []domain.ConversationTurn) (domain.Verdict, error) {
	raw, err := c.client.generateJSON(ctx, buildClassifierPrompt(question, history), GenOptions{Temperature: 0, MaxTokens: 32})
	if err != nil {
		return "", err
	}

	var payload struct {
		Retrievable *bool `json:"retrievable"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return "", domain.WrapError(domain.ErrMalformedModelOutput, "classify", err)
	}
	if payload.Retrievable == nil {
		return "", domain.WrapError(domain.ErrMalformedModelOutput, "classify", fmt.Errorf("missing retrievable field in %q", raw))
	}
	if *payload.Retrievable {
		return domain.VerdictRetrievable, nil
	}
	return domain.VerdictNotRetrievable, nil
}

// Translator implements ports.FilterTranslator.
type Translator struct {
	client      *Client
	temperature float64
}

func NewTranslator(client *Client, temperature float64) *Translator {
	return &Translator{client: client, temperature: temperature}
}

func (t *Translator) Translate(ctx context.Context, question string) (*domain.FilterPredicate, error) {
	raw, err := t.client.generateJSON(ctx, buildFilterPrompt(question), GenOptions{Temperature: t.temperature, MaxTokens: 256})
	if err != nil {
		return nil, err
	}

	predicate, err := domain.ParseFilterJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := predicate.Validate(); err != nil {
		return nil, err
	}
	return predicate, nil
}

// Generator implements ports.AnswerGenerator.
type Generator struct {
	client *Client
	opts   GenOptions
	window int
}

func NewGenerator(client *Client, opts GenOptions, historyWindow int) *Generator {
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Generator{client: client, opts: opts, window: historyWindow}
}

func (g *Generator) GenerateGrounded(ctx context.Context, question string, items []domain.CatalogItem, history []domain.ConversationTurn) (string, error) {
	return g.client.generateText(ctx, buildGroundedPrompt(question, items, history, g.window), g.opts)
}

func (g *Generator) GenerateConversational(ctx context.Context, question string, history []domain.ConversationTurn) (string, error) {
	return g.client.generateText(ctx, buildConversationalPrompt(question, history, g.window), g.opts)
}

func (c *Client) generateJSON(ctx context.Context, prompt string, opts GenOptions) (string, error) {
	return c.generate(ctx, map[string]any{
		"model":   c.genModel,
		"prompt":  prompt,
		"stream":  false,
		"format":  "json",
		"options": samplingOptions(opts),
	})
}

func (c *Client) generateText(ctx context.Context, prompt string, opts GenOptions) (string, error) {
	return c.generate(ctx, map[string]any{
		"model":   c.genModel,
		"prompt":  prompt,
		"stream":  false,
		"options": samplingOptions(opts),
	})
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func samplingOptions(opts GenOptions) map[string]any {
	options := map[string]any{
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	return options
}
