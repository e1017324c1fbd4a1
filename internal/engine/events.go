package engine

import (
	"time"

	"github.com/helixdocs/orchestrator/internal/metrics"
)

// Event types, in the order they can appear on a turn's stream. A stream is
// start, zero or more node events, zero or more response chunks, then exactly
// one terminal end or error event.
const (
	EventStart         = "start"
	EventNode          = "node"
	EventResponseChunk = "response_chunk"
	EventEnd           = "end"
	EventError         = "error"
)

// Event is one record on a turn's stream. Data is type-specific: StartData,
// NodeData, a plain string for response chunks, EndData, or ErrorData.
type Event struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Node      string    `json:"node,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StartData echoes the turn's input.
type StartData struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id"`
}

// NodeData describes one orchestration stage as it completes.
type NodeData struct {
	NodeName       string `json:"node_name"`
	RouterType     string `json:"router_type,omitempty"`
	StepsRemaining int    `json:"steps_remaining"`
	DocumentsCount int    `json:"documents_count"`
}

// TurnMetadata summarizes a finished turn.
type TurnMetadata struct {
	RouterType     string   `json:"router_type"`
	RouterLogic    string   `json:"router_logic,omitempty"`
	ResearchSteps  []string `json:"research_steps"`
	DocumentsCount int      `json:"documents_count"`
	Sources        []string `json:"sources"`
	Summary        string   `json:"summary,omitempty"`
	MessageCount   int      `json:"message_count"`
}

// EndData closes a successful stream.
type EndData struct {
	Metadata TurnMetadata `json:"metadata"`
	Status   string       `json:"status"`
}

// ErrorData closes a failed stream.
type ErrorData struct {
	Error string `json:"error"`
}

func newEvent(eventType string, data any, node string) Event {
	metrics.StreamEventsEmitted.WithLabelValues(eventType).Inc()
	return Event{
		Type:      eventType,
		Data:      data,
		Node:      node,
		Timestamp: time.Now().UTC(),
	}
}
