package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/helixdocs/orchestrator/internal/llm"
)

// ErrNoQueries indicates a research step expanded into nothing usable,
// which is fatal for that step.
var ErrNoQueries = errors.New("engine: query expansion produced no queries")

// expander turns one research step into a small set of diverse sub-queries.
type expander struct {
	client llm.Client
}

type queriesResponse struct {
	Queries []string `json:"queries"`
}

// expand returns the deduplicated sub-queries for a step. Fewer than the
// requested count is tolerated; zero is an error.
func (e *expander) expand(ctx context.Context, step string) ([]string, error) {
	msgs := []llm.Message{
		llm.System(llm.GenerateQueriesSystemPrompt),
		llm.Human(step),
	}

	var resp queriesResponse
	if err := e.client.CompleteJSON(ctx, llm.PurposeExpander, msgs, &resp); err != nil {
		return nil, fmt.Errorf("expand research step: %w", err)
	}

	seen := make(map[string]bool, len(resp.Queries))
	queries := make([]string, 0, len(resp.Queries))
	for _, q := range resp.Queries {
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	if len(queries) == 0 {
		return nil, ErrNoQueries
	}
	return queries, nil
}
