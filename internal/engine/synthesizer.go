package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/helixdocs/orchestrator/internal/conversation"
	"github.com/helixdocs/orchestrator/internal/llm"
	"github.com/helixdocs/orchestrator/internal/search"
)

// synthesizer produces the final cited answer from accumulated documents.
type synthesizer struct {
	client llm.Client
}

// buildContext renders each document as a URL-prefixed block so the model
// can cite inline.
func buildContext(docs []search.Document) string {
	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, fmt.Sprintf("[URL: %s\n%s]", doc.SourceURL, doc.Content))
	}
	return strings.Join(blocks, "\n\n")
}

func (s *synthesizer) synthesize(ctx context.Context, docs []search.Document, history []conversation.Message) (string, error) {
	system := llm.ResponsePrompt(buildContext(docs)) +
		"\n\nIMPORTANT: Always preserve code blocks with their fence markers. Never modify code content."
	msgs := append([]llm.Message{llm.System(system)}, toLLMMessages(history)...)

	answer, err := s.client.Complete(ctx, llm.PurposeSynthesis, msgs)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}
	return answer, nil
}
