package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/llm"
	llmmock "github.com/helixdocs/orchestrator/internal/llm/mock"
)

func memoryCfg() config.MemoryConfig {
	return config.MemoryConfig{TokenThreshold: 1000, KeepRecent: 3}
}

// longMessage is 800 characters: 800/4 + 5 = 205 approximate tokens.
func longMessage(role Role) Message {
	return NewMessage(role, strings.Repeat("x", 800))
}

func TestMaintainBelowThresholdIsNoOp(t *testing.T) {
	client := llmmock.NewClient()
	m := NewMemoryManager(client, memoryCfg(), nil, zap.NewNop())

	state := NewState("u1", "t1")
	state.AddHuman("short question")
	state.AddAI("short answer")

	changed, err := m.Maintain(context.Background(), state)
	if err != nil {
		t.Fatalf("maintain: %v", err)
	}
	if changed {
		t.Fatalf("maintain below threshold must not change state")
	}
	if len(state.Messages) != 2 || state.Summary != "" || state.LastSummarizedIndex != nil {
		t.Fatalf("state mutated on no-op: %+v", state)
	}
	if client.CallsFor(llm.PurposeSummary) != 0 {
		t.Fatalf("summarizer called on no-op")
	}
}

func TestMaintainSummarizesAndTrims(t *testing.T) {
	client := llmmock.NewClient()
	client.Queue(llm.PurposeSummary, "the user asked several long questions about sharding")
	m := NewMemoryManager(client, memoryCfg(), nil, zap.NewNop())

	state := NewState("u1", "t1")
	// Five counted messages at 205 approximate tokens each = 1025 >= 1000;
	// the sixth is the just-produced reply and is excluded from the count.
	for i := 0; i < 5; i++ {
		state.Messages = append(state.Messages, longMessage(RoleHuman))
	}
	state.AddAI("final reply")

	changed, err := m.Maintain(context.Background(), state)
	if err != nil {
		t.Fatalf("maintain: %v", err)
	}
	if !changed {
		t.Fatalf("maintain above threshold must summarize")
	}
	if state.Summary != "the user asked several long questions about sharding" {
		t.Fatalf("summary = %q", state.Summary)
	}
	if state.LastSummarizedIndex == nil || *state.LastSummarizedIndex != 3 {
		t.Fatalf("lastSummarizedIndex = %v, want 3 (count 6 - keep 3)", state.LastSummarizedIndex)
	}
	if len(state.Messages) != 3 {
		t.Fatalf("message list length = %d, want exactly 3", len(state.Messages))
	}
	if state.Messages[2].Content != "final reply" {
		t.Fatalf("retention window must keep the most recent messages")
	}
}

func TestMaintainExtendsExistingSummary(t *testing.T) {
	client := llmmock.NewClient()
	client.Queue(llm.PurposeSummary, "extended summary")
	m := NewMemoryManager(client, memoryCfg(), nil, zap.NewNop())

	state := NewState("u1", "t1")
	state.Summary = "earlier summary"
	idx := 1
	state.LastSummarizedIndex = &idx
	for i := 0; i < 6; i++ {
		state.Messages = append(state.Messages, longMessage(RoleHuman))
	}

	changed, err := m.Maintain(context.Background(), state)
	if err != nil || !changed {
		t.Fatalf("maintain: changed=%v err=%v", changed, err)
	}

	calls := client.Calls()
	if len(calls) != 1 {
		t.Fatalf("want one summarizer call, got %d", len(calls))
	}
	prompt := calls[0].Msgs[1].Content
	if !strings.Contains(prompt, "earlier summary") {
		t.Fatalf("summarizer prompt must carry the existing summary:\n%s", prompt)
	}
	// Only messages after the summarized index are rendered: 6 - 2 = 4 lines.
	if got := strings.Count(prompt, "Human: "); got != 4 {
		t.Fatalf("prompt renders %d message lines, want 4", got)
	}
}

func TestMaintainNoNewMessagesIsNoOp(t *testing.T) {
	client := llmmock.NewClient()
	m := NewMemoryManager(client, memoryCfg(), nil, zap.NewNop())

	state := NewState("u1", "t1")
	for i := 0; i < 6; i++ {
		state.Messages = append(state.Messages, longMessage(RoleHuman))
	}
	// Everything already summarized.
	idx := len(state.Messages) - 1
	state.LastSummarizedIndex = &idx

	changed, err := m.Maintain(context.Background(), state)
	if err != nil {
		t.Fatalf("maintain: %v", err)
	}
	if changed {
		t.Fatalf("no new messages should be a no-op")
	}
	if client.CallsFor(llm.PurposeSummary) != 0 {
		t.Fatalf("summarizer called with nothing to summarize")
	}
}

func TestMaintainSummarizerFailure(t *testing.T) {
	client := llmmock.NewClient()
	client.Fail(llm.PurposeSummary, errors.New("model unavailable"))
	m := NewMemoryManager(client, memoryCfg(), nil, zap.NewNop())

	state := NewState("u1", "t1")
	for i := 0; i < 6; i++ {
		state.Messages = append(state.Messages, longMessage(RoleHuman))
	}
	before := len(state.Messages)

	changed, err := m.Maintain(context.Background(), state)
	if err == nil {
		t.Fatalf("expected error from failed summarization")
	}
	if changed || len(state.Messages) != before || state.Summary != "" {
		t.Fatalf("failed summarization must not mutate state")
	}
}

func TestApproxCounter(t *testing.T) {
	counter := ApproxCounter{}
	msgs := []Message{
		{Content: strings.Repeat("a", 400)}, // 100 + 5
		{Content: strings.Repeat("b", 40)},  // 10 + 5
		{Content: ""},                       // 0 + 5
	}
	if got := counter.Count(msgs); got != 125 {
		t.Fatalf("Count = %d, want 125", got)
	}
	if got := counter.Count(nil); got != 0 {
		t.Fatalf("Count(nil) = %d, want 0", got)
	}
}
