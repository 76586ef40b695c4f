package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/curdside/cheese-chat/internal/core/domain"
	"github.com/curdside/cheese-chat/internal/infrastructure/resilience"
)

// Client talks to a Qdrant collection of cheese products over its REST API.
// Points are indexed by a separate ingestion pipeline; this client only reads.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// TopK returns the k nearest products to queryVector, optionally narrowed by
// a metadata predicate. Filter conditions translate to Qdrant must-clauses,
// so the conjunction semantics carry through unchanged.
func (c *Client) TopK(ctx context.Context, queryVector []float32, k int, filter *domain.FilterPredicate) ([]domain.CatalogItem, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": true,
	}
	if qf := buildFilter(filter); qf != nil {
		reqBody["filter"] = qf
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	call := func(ctx context.Context) error {
		url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create search request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant search request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			if trimmed := strings.TrimSpace(string(msg)); trimmed != "" {
				return fmt.Errorf("qdrant search status: %s: %s", resp.Status, trimmed)
			}
			return fmt.Errorf("qdrant search status: %s", resp.Status)
		}

		searchResp.Result = searchResp.Result[:0]
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}
		return nil
	}

	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search", call, resilience.ClassifyBackendError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "vector search", err)
	}

	out := make([]domain.CatalogItem, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, itemFromPayload(r.Payload, r.Score))
	}
	return out, nil
}

func buildFilter(filter *domain.FilterPredicate) map[string]any {
	if filter.IsZero() {
		return nil
	}

	must := make([]map[string]any, 0, len(filter.Fields))
	for _, field := range filter.FieldNames() {
		cond := filter.Fields[field]
		if cond.Range == nil {
			must = append(must, map[string]any{
				"key":   field,
				"match": map[string]any{"value": cond.Equals},
			})
			continue
		}
		if eq, ok := cond.Range[domain.RangeEQ]; ok && len(cond.Range) == 1 {
			must = append(must, map[string]any{
				"key":   field,
				"match": map[string]any{"value": eq},
			})
			continue
		}
		bounds := make(map[string]float64, len(cond.Range))
		for op, value := range cond.Range {
			// Qdrant spells range bounds without the operator sigil.
			bounds[strings.TrimPrefix(string(op), "$")] = value
		}
		must = append(must, map[string]any{
			"key":   field,
			"range": bounds,
		})
	}
	return map[string]any{"must": must}
}

func itemFromPayload(payload map[string]any, score float64) domain.CatalogItem {
	return domain.CatalogItem{
		ID:          getStringPayload(payload, "id"),
		Name:        getStringPayload(payload, "name"),
		Description: getStringPayload(payload, "description"),
		CheeseType:  getStringPayload(payload, "cheese_type"),
		CheeseForm:  getStringPayload(payload, "cheese_form"),
		Brand:       getStringPayload(payload, "brand"),
		Location:    getStringPayload(payload, "location"),
		PriceEach:   getFloatPayload(payload, "price_each"),
		PricePerLb:  getFloatPayload(payload, "price_per_lb"),
		LbPerEach:   getFloatPayload(payload, "lb_per_each"),
		CaseSize:    getStringPayload(payload, "case"),
		SKU:         getStringPayload(payload, "sku"),
		UPC:         getStringPayload(payload, "upc"),
		ImageURL:    getStringPayload(payload, "image_url"),
		SourceURL:   getStringPayload(payload, "source_url"),
		Score:       score,
	}
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getFloatPayload(payload map[string]any, key string) float64 {
	v, ok := payload[key]
	if !ok {
		return 0
	}
	switch typed := v.(type) {
	case float64:
		return typed
	case json.Number:
		f, _ := typed.Float64()
		return f
	default:
		return 0
	}
}
