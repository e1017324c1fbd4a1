// Package engine orchestrates a conversational retrieval turn: route the
// query, plan research, expand and retrieve in parallel, synthesize a cited
// answer, and keep conversation memory bounded. Progress is exposed as an
// ordered event stream.
package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/conversation"
	"github.com/helixdocs/orchestrator/internal/llm"
	"github.com/helixdocs/orchestrator/internal/metrics"
)

// Node names as they appear in stream events.
const (
	nodeRoute     = "analyze_and_route_query"
	nodeMoreInfo  = "ask_for_more_info"
	nodeGeneral   = "respond_to_general_query"
	nodePlan      = "create_research_plan"
	nodeResearch  = "conduct_research"
	nodeRespond   = "respond"
	nodeSummarize = "summarize_conversation"
)

// streamBuffer bounds the per-turn event channel.
const streamBuffer = 64

const fallbackReply = "I apologize, but I encountered an error processing your request. Please try again."

// Engine runs turns. One instance serves all threads; turns on the same
// thread are serialized by rejection.
type Engine struct {
	client      llm.Client
	checkpoints conversation.Checkpointer
	memory      *conversation.MemoryManager
	router      *router
	planner     *planner
	researcher  *researcher
	synthesizer *synthesizer
	logger      *zap.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New wires an engine from its collaborators.
func New(client llm.Client, checkpoints conversation.Checkpointer, retriever Retriever, memory *conversation.MemoryManager, cfg config.ResearchConfig, logger *zap.Logger) *Engine {
	logger = logger.With(zap.String("component", "engine"))
	return &Engine{
		client:      client,
		checkpoints: checkpoints,
		memory:      memory,
		router:      &router{client: client},
		planner:     &planner{client: client, maxSteps: cfg.MaxPlanSteps, logger: logger},
		researcher: &researcher{
			expander:    &expander{client: client},
			retriever:   retriever,
			parallelism: cfg.MaxParallelism,
			logger:      logger,
		},
		synthesizer: &synthesizer{client: client},
		logger:      logger,
		inflight:    make(map[string]bool),
	}
}

// AskStream starts a turn and returns its event stream. The channel is
// closed after the terminal end or error event. A second concurrent turn on
// the same thread is rejected with ErrTurnInProgress.
func (e *Engine) AskStream(ctx context.Context, query, userID, threadID string) (<-chan Event, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	e.mu.Lock()
	if e.inflight[threadID] {
		e.mu.Unlock()
		metrics.TurnsRejected.Inc()
		return nil, ErrTurnInProgress
	}
	e.inflight[threadID] = true
	e.mu.Unlock()

	metrics.TurnsStarted.Inc()
	ch := make(chan Event, streamBuffer)
	go func() {
		defer func() {
			close(ch)
			e.mu.Lock()
			delete(e.inflight, threadID)
			e.mu.Unlock()
		}()
		e.runTurn(ctx, ch, query, userID, threadID)
	}()
	return ch, nil
}

// turn carries the mutable pieces of one in-flight turn.
type turn struct {
	ctx    context.Context
	ch     chan<- Event
	state  *conversation.State
	plan   []string // the full plan as created, for end-of-turn metadata
	start  time.Time
	closed bool
}

// emit sends one event, giving up if the consumer's context is gone.
func (t *turn) emit(ev Event) bool {
	if t.closed {
		return false
	}
	select {
	case t.ch <- ev:
		return true
	case <-t.ctx.Done():
		t.closed = true
		return false
	}
}

func (t *turn) emitNode(name string) bool {
	data := NodeData{NodeName: name}
	if t.state.Router != nil {
		data.RouterType = string(t.state.Router.Type)
	}
	data.StepsRemaining = len(t.state.Steps)
	data.DocumentsCount = len(t.state.Documents)
	return t.emit(newEvent(EventNode, data, name))
}

func (e *Engine) runTurn(ctx context.Context, ch chan<- Event, query, userID, threadID string) {
	t := &turn{ctx: ctx, ch: ch, start: time.Now()}

	routerType := "unknown"
	fail := func(err error) {
		e.logger.Error("turn failed",
			zap.String("thread_id", threadID),
			zap.Error(err))
		t.emit(newEvent(EventError, ErrorData{Error: rewriteError(err)}, ""))
		metrics.RecordTurnMetrics(routerType, "error", time.Since(t.start).Seconds())
	}

	t.emit(newEvent(EventStart, StartData{Query: query, ThreadID: threadID}, ""))

	state, err := e.checkpoints.Load(ctx, threadID)
	if err != nil {
		fail(err)
		return
	}
	if state == nil {
		state = conversation.NewState(userID, threadID)
	}
	// A new turn starts with a clean routing decision; history, summary and
	// summarization bookkeeping carry over.
	state.Router = nil
	state.Steps = nil
	t.state = state
	state.AddHuman(query)

	// Route.
	decision, err := e.router.decide(ctx, state.Messages)
	if err != nil {
		fail(err)
		return
	}
	state.Router = decision
	routerType = string(decision.Type)
	if err := e.checkpoints.Save(ctx, state); err != nil {
		fail(err)
		return
	}
	if !t.emitNode(nodeRoute) {
		return
	}

	switch decision.Type {
	case conversation.RouteMoreInfo:
		_, err = e.directReply(ctx, t, nodeMoreInfo, llm.MoreInfoPrompt(decision.Logic))
	case conversation.RouteGeneral:
		_, err = e.directReply(ctx, t, nodeGeneral, llm.GeneralPrompt(decision.Logic))
	case conversation.RouteOnTopic:
		_, err = e.researchAndRespond(ctx, t, query)
	}
	if err != nil {
		fail(err)
		return
	}

	// Post-turn memory maintenance.
	if _, err := e.memory.Maintain(ctx, state); err != nil {
		fail(err)
		return
	}
	if err := e.checkpoints.Save(ctx, state); err != nil {
		fail(err)
		return
	}
	if !t.emitNode(nodeSummarize) {
		return
	}

	metadata := e.buildMetadata(t)
	t.emit(newEvent(EventEnd, EndData{Metadata: metadata, Status: "success"}, ""))
	metrics.RecordTurnMetrics(routerType, "success", time.Since(t.start).Seconds())
	e.logger.Info("turn complete",
		zap.String("thread_id", threadID),
		zap.String("router_type", routerType),
		zap.Int("documents", metadata.DocumentsCount))
}

// directReply answers without retrieval, for needs-more-info and general
// routes. The router's rationale is folded into the system prompt.
func (e *Engine) directReply(ctx context.Context, t *turn, node, systemPrompt string) (string, error) {
	msgs := append([]llm.Message{llm.System(systemPrompt)}, toLLMMessages(t.state.Messages)...)
	reply, err := e.client.Complete(ctx, llm.PurposeDirect, msgs)
	if err != nil {
		return "", err
	}
	t.state.AddAI(reply)
	if err := e.checkpoints.Save(ctx, t.state); err != nil {
		return "", err
	}
	if !t.emitNode(node) {
		return reply, nil
	}
	t.emit(newEvent(EventResponseChunk, reply, node))
	return reply, nil
}

// researchAndRespond runs the on-topic path: plan, loop over the plan one
// step at a time with parallel retrieval inside each step, then synthesize.
func (e *Engine) researchAndRespond(ctx context.Context, t *turn, query string) (string, error) {
	state := t.state

	// Plan. Accumulated documents reset when a new plan is created.
	plan := e.planner.plan(ctx, state.Messages, query)
	t.plan = append([]string(nil), plan...)
	state.Steps = plan
	state.Documents = nil
	if err := e.checkpoints.Save(ctx, state); err != nil {
		return "", err
	}
	if !t.emitNode(nodePlan) {
		return "", nil
	}

	// Research loop: exactly one step per iteration, never looking ahead.
	for len(state.Steps) > 0 {
		step := state.Steps[0]
		docs, err := e.researcher.research(ctx, step)
		if err != nil {
			return "", err
		}
		state.Documents = append(state.Documents, docs...)
		state.Steps = state.Steps[1:]
		if err := e.checkpoints.Save(ctx, state); err != nil {
			return "", err
		}
		if !t.emitNode(nodeResearch) {
			return "", nil
		}
	}

	// Synthesize.
	reply, err := e.synthesizer.synthesize(ctx, state.Documents, state.Messages)
	if err != nil {
		return "", err
	}
	state.AddAI(reply)
	if err := e.checkpoints.Save(ctx, state); err != nil {
		return "", err
	}
	if !t.emitNode(nodeRespond) {
		return reply, nil
	}
	t.emit(newEvent(EventResponseChunk, reply, nodeRespond))
	return reply, nil
}

func (e *Engine) buildMetadata(t *turn) TurnMetadata {
	state := t.state
	sources := make([]string, 0, len(state.Documents))
	for _, doc := range state.Documents {
		sources = append(sources, doc.SourceURL)
	}
	md := TurnMetadata{
		ResearchSteps:  t.plan,
		DocumentsCount: len(state.Documents),
		Sources:        sources,
		Summary:        state.Summary,
		MessageCount:   len(state.Messages),
	}
	if md.ResearchSteps == nil {
		md.ResearchSteps = []string{}
	}
	if state.Router != nil {
		md.RouterType = string(state.Router.Type)
		md.RouterLogic = state.Router.Logic
	}
	return md
}
