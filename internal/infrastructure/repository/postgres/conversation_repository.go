package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/curdside/cheese-chat/internal/core/domain"
)

// ConversationRepository persists chat sessions and their turns so a
// session survives process restarts. Ordering within a session comes from
// the turn sequence, not timestamps.
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_turns (
	seq BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES chat_sessions(id),
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_turns_session ON chat_turns(session_id, seq);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ConversationRepository) EnsureSession(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_sessions (id, created_at)
VALUES ($1, $2)
ON CONFLICT (id) DO NOTHING
`, sessionID, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "ensure session", err)
	}
	return nil
}

func (r *ConversationRepository) AppendTurn(ctx context.Context, sessionID string, turn domain.ConversationTurn) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_turns (session_id, role, content, created_at)
VALUES ($1, $2, $3, $4)
`, sessionID, turn.Role, turn.Content, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrBackendUnavailable, "append turn", err)
	}
	return nil
}

func (r *ConversationRepository) ListTurns(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id FROM chat_sessions WHERE id = $1`, sessionID)
	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSessionNotFound, "list turns", fmt.Errorf("session %s", sessionID))
		}
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "list turns", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT role, content
FROM chat_turns
WHERE session_id = $1
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "list turns", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationTurn, 0)
	for rows.Next() {
		var turn domain.ConversationTurn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, domain.WrapError(domain.ErrBackendUnavailable, "list turns", fmt.Errorf("scan turn: %w", err))
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "list turns", fmt.Errorf("iterate turns: %w", err))
	}
	return out, nil
}
