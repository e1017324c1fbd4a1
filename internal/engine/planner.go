package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/conversation"
	"github.com/helixdocs/orchestrator/internal/llm"
)

// planner turns an on-topic conversation into an ordered list of research
// steps. A failed or empty plan degrades to a single step equal to the raw
// query rather than failing the turn.
type planner struct {
	client   llm.Client
	maxSteps int
	logger   *zap.Logger
}

type planResponse struct {
	Steps []string `json:"steps"`
}

func (p *planner) plan(ctx context.Context, history []conversation.Message, query string) []string {
	msgs := append([]llm.Message{llm.System(llm.ResearchPlanSystemPrompt)}, toLLMMessages(history)...)

	var resp planResponse
	if err := p.client.CompleteJSON(ctx, llm.PurposePlanner, msgs, &resp); err != nil {
		p.logger.Warn("research planning failed, using the query as a single step", zap.Error(err))
		return []string{query}
	}

	steps := make([]string, 0, len(resp.Steps))
	for _, s := range resp.Steps {
		if s != "" {
			steps = append(steps, s)
		}
	}
	if len(steps) == 0 {
		p.logger.Warn("research plan was empty, using the query as a single step")
		return []string{query}
	}
	if p.maxSteps > 0 && len(steps) > p.maxSteps {
		steps = steps[:p.maxSteps]
	}
	return steps
}
