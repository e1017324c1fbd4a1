// Package llm defines the chat-completion boundary used by the engine.
// Implementations talk to any OpenAI-compatible endpoint; tests use the
// scripted client in the mock subpackage.
package llm

import (
	"context"
	"errors"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is a single chat turn sent to or received from the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Purposes label completion calls for logging and metrics.
const (
	PurposeRouter    = "router"
	PurposePlanner   = "planner"
	PurposeExpander  = "expander"
	PurposeSynthesis = "synthesis"
	PurposeSummary   = "summary"
	PurposeDirect    = "direct_reply"
)

var (
	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("llm: model returned no choices")
	// ErrMalformedJSON indicates the model's output could not be parsed
	// after all repair attempts.
	ErrMalformedJSON = errors.New("llm: malformed JSON response")
)

// Client is the completion capability consumed by the engine. purpose is a
// short label (see the Purpose constants) used for metrics and logs.
type Client interface {
	// Complete returns the model's text reply to the given messages.
	Complete(ctx context.Context, purpose string, msgs []Message) (string, error)

	// CompleteJSON asks the model for a JSON object and unmarshals it
	// into out. Implementations retry on malformed output.
	CompleteJSON(ctx context.Context, purpose string, msgs []Message, out any) error
}

// System is shorthand for a system-role message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// Human is shorthand for a human-role message.
func Human(content string) Message { return Message{Role: RoleHuman, Content: content} }

// AI is shorthand for an ai-role message.
func AI(content string) Message { return Message{Role: RoleAI, Content: content} }
