package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one append-only history entry. Turns are never
// mutated after being appended to a session.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the externally visible output of one ask call. Context is
// the authoritative citation list for any downstream renderer; citations in
// Answer are embedded prose only.
type ChatResponse struct {
	Answer  string             `json:"answer"`
	Context []CatalogItem      `json:"context"`
	History []ConversationTurn `json:"history"`
}

// ChatTurnEvent is the per-ask analytics record published after the
// response is assembled. It never influences the response itself.
type ChatTurnEvent struct {
	SessionID  string    `json:"session_id"`
	Question   string    `json:"question"`
	Verdict    Verdict   `json:"verdict"`
	QueryType  QueryType `json:"query_type"`
	ItemCount  int       `json:"item_count"`
	Degraded   bool      `json:"degraded"`
	DurationMS float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
