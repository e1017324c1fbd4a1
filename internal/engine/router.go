package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/helixdocs/orchestrator/internal/conversation"
	"github.com/helixdocs/orchestrator/internal/llm"
)

// ErrBadRoute indicates the model classified a turn outside the three
// allowed route types. This is fatal for the turn; there is no default.
var ErrBadRoute = errors.New("engine: router returned an unknown route type")

// router classifies a turn from the full message history.
type router struct {
	client llm.Client
}

func (r *router) decide(ctx context.Context, history []conversation.Message) (*conversation.RouterDecision, error) {
	msgs := append([]llm.Message{llm.System(llm.RouterSystemPrompt)}, toLLMMessages(history)...)

	var decision conversation.RouterDecision
	if err := r.client.CompleteJSON(ctx, llm.PurposeRouter, msgs, &decision); err != nil {
		return nil, fmt.Errorf("classify query: %w", err)
	}
	if !decision.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrBadRoute, decision.Type)
	}
	return &decision, nil
}

// toLLMMessages converts history into completion-call messages.
func toLLMMessages(history []conversation.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		var role llm.Role
		switch m.Role {
		case conversation.RoleAI:
			role = llm.RoleAI
		case conversation.RoleSystem:
			role = llm.RoleSystem
		default:
			role = llm.RoleHuman
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out
}
