// Package conversation holds per-thread state: the message history, its
// rolling summary, checkpoint persistence, and the token-triggered memory
// manager that keeps history bounded.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/helixdocs/orchestrator/internal/search"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
)

// Message is one entry in a thread's history.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage builds a message with a fresh identifier.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// RouteType is the router's classification of a turn.
type RouteType string

const (
	RouteOnTopic  RouteType = "on-topic"
	RouteMoreInfo RouteType = "needs-more-info"
	RouteGeneral  RouteType = "general"
)

// Valid reports whether t is one of the three allowed route types.
func (t RouteType) Valid() bool {
	return t == RouteOnTopic || t == RouteMoreInfo || t == RouteGeneral
}

// RouterDecision is the router's output for one turn, immutable once set.
type RouterDecision struct {
	Type  RouteType `json:"type"`
	Logic string    `json:"logic"`
}

// State is the full per-thread conversation state. It is owned by the
// engine and persisted through a Checkpointer at node boundaries.
type State struct {
	ThreadID            string            `json:"thread_id"`
	UserID              string            `json:"user_id"`
	Messages            []Message         `json:"messages"`
	Summary             string            `json:"summary,omitempty"`
	LastSummarizedIndex *int              `json:"last_summarized_index,omitempty"`
	Router              *RouterDecision   `json:"router,omitempty"`
	Steps               []string          `json:"steps,omitempty"`
	Documents           []search.Document `json:"documents,omitempty"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// NewState returns the empty state for a fresh thread.
func NewState(userID, threadID string) *State {
	return &State{
		ThreadID:  threadID,
		UserID:    userID,
		Messages:  []Message{},
		UpdatedAt: time.Now().UTC(),
	}
}

// AddHuman appends a human message and returns it.
func (s *State) AddHuman(content string) Message {
	msg := NewMessage(RoleHuman, content)
	s.Messages = append(s.Messages, msg)
	return msg
}

// AddAI appends an ai message and returns it.
func (s *State) AddAI(content string) Message {
	msg := NewMessage(RoleAI, content)
	s.Messages = append(s.Messages, msg)
	return msg
}

// Clone returns a deep copy so an in-flight turn can mutate state without
// touching what a cache or a concurrent reader sees.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]Message(nil), s.Messages...)
	out.Steps = append([]string(nil), s.Steps...)
	out.Documents = append([]search.Document(nil), s.Documents...)
	if s.LastSummarizedIndex != nil {
		idx := *s.LastSummarizedIndex
		out.LastSummarizedIndex = &idx
	}
	if s.Router != nil {
		r := *s.Router
		out.Router = &r
	}
	return &out
}
