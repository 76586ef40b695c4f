package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

type storeFake struct {
	sessions map[string][]domain.ConversationTurn
	ensure   []string
}

func newStoreFake() *storeFake {
	return &storeFake{sessions: make(map[string][]domain.ConversationTurn)}
}

func (f *storeFake) EnsureSession(_ context.Context, sessionID string) error {
	f.ensure = append(f.ensure, sessionID)
	if _, ok := f.sessions[sessionID]; !ok {
		f.sessions[sessionID] = nil
	}
	return nil
}

func (f *storeFake) AppendTurn(_ context.Context, sessionID string, turn domain.ConversationTurn) error {
	f.sessions[sessionID] = append(f.sessions[sessionID], turn)
	return nil
}

func (f *storeFake) ListTurns(_ context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	turns, ok := f.sessions[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "list turns", errors.New(sessionID))
	}
	return turns, nil
}

func newTestManager(store *storeFake) *SessionManager {
	return NewSessionManager(SessionDeps{
		Classifier: &classifierFake{verdict: domain.VerdictRetrievable},
		Translator: &translatorFake{},
		Retriever:  newTestRetriever(&embedderFake{}, &vectorFake{items: someItems("Gouda")}, &catalogFake{}),
		Composer:   NewComposer(&generatorFake{answer: "Here you go."}, 0, nil),
		Store:      store,
	})
}

func TestCreateSessionPersistsAndServesAsks(t *testing.T) {
	store := newStoreFake()
	manager := newTestManager(store)

	id, err := manager.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected a session id")
	}
	if len(store.ensure) != 1 || store.ensure[0] != id {
		t.Fatalf("session was not persisted: %+v", store.ensure)
	}

	resp, err := manager.Ask(context.Background(), id, "something creamy", nil)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(resp.History))
	}
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	manager := newTestManager(newStoreFake())

	_, err := manager.Ask(context.Background(), "nope", "question", nil)
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	_, err = manager.History(context.Background(), "nope")
	if !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionResumesFromStoreAfterRestart(t *testing.T) {
	store := newStoreFake()
	store.sessions["old"] = []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "any brie?"},
		{Role: domain.RoleAssistant, Content: "We carry two."},
	}

	// A fresh manager simulates a restarted process with no live sessions.
	manager := newTestManager(store)

	history, err := manager.History(context.Background(), "old")
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("resumed history length = %d, want 2", len(history))
	}

	resp, err := manager.Ask(context.Background(), "old", "which is cheaper?", nil)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(resp.History) != 4 {
		t.Fatalf("history after resume = %d turns, want 4", len(resp.History))
	}
}

func TestEmptySessionIDIsInvalidInput(t *testing.T) {
	manager := newTestManager(newStoreFake())

	_, err := manager.Ask(context.Background(), "", "question", nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
