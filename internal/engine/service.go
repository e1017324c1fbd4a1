package engine

import (
	"context"
	"fmt"
)

// Result is the non-streaming outcome of a turn.
type Result struct {
	Response string       `json:"response"`
	Metadata TurnMetadata `json:"metadata"`
	Status   string       `json:"status"`
	Error    string       `json:"error,omitempty"`
}

// Ask runs a full turn and returns the final answer, consuming the event
// stream internally.
func (e *Engine) Ask(ctx context.Context, query, userID, threadID string) (*Result, error) {
	events, err := e.AskStream(ctx, query, userID, threadID)
	if err != nil {
		return nil, err
	}

	result := &Result{Status: "success"}
	for ev := range events {
		switch ev.Type {
		case EventResponseChunk:
			if text, ok := ev.Data.(string); ok {
				result.Response = text
			}
		case EventEnd:
			if end, ok := ev.Data.(EndData); ok {
				result.Metadata = end.Metadata
				result.Status = end.Status
			}
		case EventError:
			if ed, ok := ev.Data.(ErrorData); ok {
				result.Error = ed.Error
			}
			result.Status = "error"
			result.Response = fallbackReply
		}
	}
	return result, nil
}

// HistoryMessage is one message as exposed to callers.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	ID      string `json:"id"`
}

// HistoryMetadata describes a thread alongside its messages.
type HistoryMetadata struct {
	TotalMessages       int    `json:"total_messages"`
	ReturnedMessages    int    `json:"returned_messages"`
	HasSummary          bool   `json:"has_summary"`
	LastSummarizedIndex *int   `json:"last_summarized_index,omitempty"`
	RouterType          string `json:"router_type,omitempty"`
}

// HistoryResult is the history lookup contract consumed by the transport.
type HistoryResult struct {
	Messages []HistoryMessage `json:"messages"`
	Summary  string           `json:"summary,omitempty"`
	Metadata HistoryMetadata  `json:"metadata"`
	Status   string           `json:"status"`
}

// History returns a thread's messages, most recent last. limit > 0 returns
// only the most recent limit messages. An unknown or empty thread reports
// status not_found, not an error.
func (e *Engine) History(ctx context.Context, userID, threadID string, limit int) (*HistoryResult, error) {
	state, err := e.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if state == nil || len(state.Messages) == 0 {
		out := &HistoryResult{Messages: []HistoryMessage{}, Status: "not_found"}
		if state != nil {
			out.Summary = state.Summary
			out.Metadata.HasSummary = state.Summary != ""
		}
		return out, nil
	}

	msgs := make([]HistoryMessage, 0, len(state.Messages))
	for _, m := range state.Messages {
		msgs = append(msgs, HistoryMessage{Role: string(m.Role), Content: m.Content, ID: m.ID})
	}
	total := len(msgs)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := &HistoryResult{
		Messages: msgs,
		Summary:  state.Summary,
		Metadata: HistoryMetadata{
			TotalMessages:       total,
			ReturnedMessages:    len(msgs),
			HasSummary:          state.Summary != "",
			LastSummarizedIndex: state.LastSummarizedIndex,
		},
		Status: "success",
	}
	if state.Router != nil {
		out.Metadata.RouterType = string(state.Router.Type)
	}
	return out, nil
}

// DeleteResult reports the outcome of a history deletion.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// DeleteHistory removes a thread's state entirely.
func (e *Engine) DeleteHistory(ctx context.Context, userID, threadID string) (*DeleteResult, error) {
	state, err := e.checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if state == nil || len(state.Messages) == 0 {
		return &DeleteResult{
			Deleted: false,
			Message: "No conversation history found for this thread",
			Status:  "not_found",
		}, nil
	}

	removed, err := e.checkpoints.Delete(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return &DeleteResult{
		Deleted: true,
		Message: fmt.Sprintf("Successfully deleted %d messages from conversation", removed),
		Status:  "success",
	}, nil
}
