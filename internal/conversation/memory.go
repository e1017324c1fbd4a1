package conversation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/llm"
	"github.com/helixdocs/orchestrator/internal/metrics"
)

// MemoryManager keeps thread history bounded: once the history (excluding
// the just-produced reply) crosses the token threshold, everything outside
// the retention window is folded into an incrementally extended summary and
// trimmed from the message list.
type MemoryManager struct {
	client    llm.Client
	counter   TokenCounter
	threshold int
	keep      int
	logger    *zap.Logger
}

// NewMemoryManager wires the manager from configuration. counter may be nil,
// in which case the character approximation is used.
func NewMemoryManager(client llm.Client, cfg config.MemoryConfig, counter TokenCounter, logger *zap.Logger) *MemoryManager {
	if counter == nil {
		counter = ApproxCounter{}
	}
	threshold := cfg.TokenThreshold
	if threshold <= 0 {
		threshold = 1000
	}
	keep := cfg.KeepRecent
	if keep <= 0 {
		keep = 3
	}
	return &MemoryManager{
		client:    client,
		counter:   counter,
		threshold: threshold,
		keep:      keep,
		logger:    logger.With(zap.String("component", "memory")),
	}
}

// Maintain runs the post-turn summarization check and mutates state in place
// when it fires. It reports whether state changed. The last message is the
// turn's reply and is excluded from the token count.
func (m *MemoryManager) Maintain(ctx context.Context, state *State) (bool, error) {
	if state == nil || len(state.Messages) == 0 {
		return false, nil
	}

	counted := state.Messages[:len(state.Messages)-1]
	tokens := m.counter.Count(counted)
	if tokens < m.threshold {
		return false, nil
	}

	lastIndex := -1
	if state.LastSummarizedIndex != nil {
		lastIndex = *state.LastSummarizedIndex
	}
	from := lastIndex + 1
	if from >= len(state.Messages) {
		// Nothing new since the last summarization.
		return false, nil
	}
	fresh := state.Messages[from:]

	lines := make([]string, 0, len(fresh))
	for _, msg := range fresh {
		lines = append(lines, fmt.Sprintf("%s: %s", roleLabel(msg.Role), msg.Content))
	}

	summary, err := m.client.Complete(ctx, llm.PurposeSummary, []llm.Message{
		llm.System(llm.SummarySystemPrompt),
		llm.Human(llm.ExtendSummaryPrompt(state.Summary, strings.Join(lines, "\n"))),
	})
	if err != nil {
		return false, fmt.Errorf("summarize conversation: %w", err)
	}

	total := len(state.Messages)
	newIndex := total - m.keep
	trimmed := 0
	if total > m.keep {
		trimmed = total - m.keep
		state.Messages = append([]Message(nil), state.Messages[total-m.keep:]...)
	}
	state.Summary = strings.TrimSpace(summary)
	state.LastSummarizedIndex = &newIndex

	metrics.SummarizationsTriggered.Inc()
	metrics.MessagesTrimmed.Add(float64(trimmed))
	m.logger.Info("summarized conversation",
		zap.String("thread_id", state.ThreadID),
		zap.Int("tokens", tokens),
		zap.Int("trimmed", trimmed),
		zap.Int("last_summarized_index", newIndex))
	return true, nil
}

func roleLabel(r Role) string {
	switch r {
	case RoleHuman:
		return "Human"
	case RoleAI:
		return "AI"
	default:
		return "System"
	}
}
