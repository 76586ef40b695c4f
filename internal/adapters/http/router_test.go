package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/curdside/cheese-chat/internal/core/domain"
	"github.com/curdside/cheese-chat/internal/observability/metrics"
)

type chatFake struct {
	askErr     error
	historyErr error
	gotFilter  *domain.FilterPredicate
	gotSession string
}

func (f *chatFake) CreateSession(context.Context) (string, error) {
	return "sess-1", nil
}

func (f *chatFake) Ask(_ context.Context, sessionID, question string, filter *domain.FilterPredicate) (*domain.ChatResponse, error) {
	f.gotSession = sessionID
	f.gotFilter = filter
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &domain.ChatResponse{
		Answer:  "We carry two goudas.",
		Context: []domain.CatalogItem{},
		History: []domain.ConversationTurn{
			{Role: domain.RoleUser, Content: question},
			{Role: domain.RoleAssistant, Content: "We carry two goudas."},
		},
	}, nil
}

func (f *chatFake) History(context.Context, string) ([]domain.ConversationTurn, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return []domain.ConversationTurn{{Role: domain.RoleUser, Content: "hi"}}, nil
}

func newTestRouter(fake *chatFake) http.Handler {
	return NewRouter(fake, metrics.NewChatMetrics("test"), RouterConfig{}).Handler()
}

func postChat(t *testing.T, handler http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestPostChatReturnsAnswerAndHistory(t *testing.T) {
	fake := &chatFake{}
	res := postChat(t, newTestRouter(fake), map[string]any{
		"session_id": "sess-1",
		"question":   "any gouda?",
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var resp domain.ChatResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer == "" || len(resp.History) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if fake.gotSession != "sess-1" {
		t.Fatalf("session id not forwarded, got %q", fake.gotSession)
	}
}

func TestPostChatParsesCallerFilter(t *testing.T) {
	fake := &chatFake{}
	res := postChat(t, newTestRouter(fake), map[string]any{
		"session_id": "sess-1",
		"question":   "cheddar under ten",
		"filter":     map[string]any{"cheese_type": "Cheddar", "price_each": map[string]any{"$lt": 10}},
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if fake.gotFilter == nil {
		t.Fatal("expected the caller filter to reach the service")
	}
	if fake.gotFilter.Fields["cheese_type"].Equals != "Cheddar" {
		t.Fatalf("unexpected filter: %+v", fake.gotFilter)
	}
}

func TestPostChatDiscardsInvalidCallerFilter(t *testing.T) {
	fake := &chatFake{}
	res := postChat(t, newTestRouter(fake), map[string]any{
		"session_id": "sess-1",
		"question":   "french cheese",
		"filter":     map[string]any{"origin_country": "France"},
	})

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if fake.gotFilter != nil {
		t.Fatalf("invalid filter should be discarded, got %+v", fake.gotFilter)
	}
}

func TestPostChatRequiresQuestion(t *testing.T) {
	res := postChat(t, newTestRouter(&chatFake{}), map[string]any{"session_id": "sess-1"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("empty")), http.StatusBadRequest},
		{"session not found", domain.WrapError(domain.ErrSessionNotFound, "ask", errors.New("missing")), http.StatusNotFound},
		{"backend unavailable", domain.WrapError(domain.ErrBackendUnavailable, "ask", errors.New("down")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := postChat(t, newTestRouter(&chatFake{askErr: tc.err}), map[string]any{
				"session_id": "sess-1",
				"question":   "any gouda?",
			})
			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestCreateSessionReturns201(t *testing.T) {
	handler := newTestRouter(&chatFake{})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["session_id"] != "sess-1" {
		t.Fatalf("unexpected session id: %q", resp["session_id"])
	}
}

func TestGetSessionHistoryUnknownSessionIs404(t *testing.T) {
	fake := &chatFake{historyErr: domain.WrapError(domain.ErrSessionNotFound, "history", errors.New("missing"))}
	handler := newTestRouter(fake)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(&chatFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("expected X-Request-Id header")
	}
}
