package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

// SessionManager implements ports.ChatService. It owns live sessions by id
// and resumes persisted ones from the conversation store. Sessions are
// independent; only calls within one session are serialized.
type SessionManager struct {
	deps SessionDeps

	mu       sync.RWMutex
	sessions map[string]*ChatSession
}

func NewSessionManager(deps SessionDeps) *SessionManager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &SessionManager{
		deps:     deps,
		sessions: make(map[string]*ChatSession),
	}
}

func (m *SessionManager) CreateSession(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if m.deps.Store != nil {
		if err := m.deps.Store.EnsureSession(ctx, id); err != nil {
			m.deps.Logger.Warn("session_persistence_failed", "session_id", id, "error", err)
		}
	}

	m.mu.Lock()
	m.sessions[id] = NewChatSession(id, m.deps)
	m.mu.Unlock()
	return id, nil
}

func (m *SessionManager) Ask(ctx context.Context, sessionID, question string, filter *domain.FilterPredicate) (*domain.ChatResponse, error) {
	session, err := m.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Ask(ctx, question, filter)
}

func (m *SessionManager) History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	session, err := m.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.History(), nil
}

// session returns the live session, resuming it from the store when the
// process has restarted since the session was created.
func (m *SessionManager) session(ctx context.Context, sessionID string) (*ChatSession, error) {
	if sessionID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "session lookup", fmt.Errorf("session id is required"))
	}

	m.mu.RLock()
	session, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return session, nil
	}

	if m.deps.Store == nil {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "session lookup", fmt.Errorf("unknown session %s", sessionID))
	}

	history, err := m.deps.Store.ListTurns(ctx, sessionID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("resume session %s: %w", sessionID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok {
		return existing, nil
	}
	session = NewChatSessionWithHistory(sessionID, m.deps, history)
	m.sessions[sessionID] = session
	return session, nil
}
