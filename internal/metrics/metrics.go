package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Turn metrics
	TurnsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_turns_started_total",
			Help: "Total number of conversation turns started",
		},
	)

	TurnsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helixdocs_turns_completed_total",
			Help: "Total number of conversation turns completed",
		},
		[]string{"router_type", "status"},
	)

	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helixdocs_turn_duration_seconds",
			Help:    "Turn execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TurnsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_turns_rejected_total",
			Help: "Turns rejected because another turn was in flight for the thread",
		},
	)

	// Retrieval metrics
	RetrievalLegDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helixdocs_retrieval_leg_duration_seconds",
			Help:    "Duration of a single retrieval leg (lexical or vector)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"leg", "status"},
	)

	RetrievalDocuments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helixdocs_retrieval_documents",
			Help:    "Number of documents returned per hybrid search call",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	FusionCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helixdocs_fusion_candidates",
			Help:    "Number of distinct document IDs entering rank fusion",
			Buckets: []float64{0, 5, 10, 20, 50, 100},
		},
	)

	MaterializationMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_materialization_misses_total",
			Help: "Fused document IDs that could not be fetched from the index",
		},
	)

	// LLM metrics
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helixdocs_llm_calls_total",
			Help: "Total LLM completion calls",
		},
		[]string{"purpose", "status"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helixdocs_llm_call_duration_seconds",
			Help:    "LLM completion call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"purpose"},
	)

	// Embedding metrics
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helixdocs_embedding_requests_total",
			Help: "Embedding generation requests by cache outcome",
		},
		[]string{"outcome"},
	)

	// Checkpoint metrics
	CheckpointsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_checkpoints_saved_total",
			Help: "Total number of conversation checkpoints saved",
		},
	)

	CheckpointCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "helixdocs_checkpoint_cache_size",
			Help: "Number of conversation states held in the local cache",
		},
	)

	CheckpointCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_checkpoint_cache_hits_total",
			Help: "Local cache hits when loading conversation state",
		},
	)

	CheckpointCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_checkpoint_cache_misses_total",
			Help: "Local cache misses when loading conversation state",
		},
	)

	CheckpointCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_checkpoint_cache_evictions_total",
			Help: "Conversation states evicted from the local cache",
		},
	)

	// Memory manager metrics
	SummarizationsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_summarizations_triggered_total",
			Help: "Conversation summarizations triggered by the memory manager",
		},
	)

	MessagesTrimmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helixdocs_messages_trimmed_total",
			Help: "Messages folded into the summary and removed from history",
		},
	)

	// Streaming metrics
	StreamEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helixdocs_stream_events_emitted_total",
			Help: "Stream events emitted by the orchestrator",
		},
		[]string{"type"},
	)
)

// RecordTurnMetrics records completion metrics for a single turn.
func RecordTurnMetrics(routerType, status string, durationSeconds float64) {
	TurnsCompleted.WithLabelValues(routerType, status).Inc()
	TurnDuration.Observe(durationSeconds)
}

// RecordRetrievalLeg records the outcome of one lexical or vector search leg.
func RecordRetrievalLeg(leg, status string, durationSeconds float64) {
	RetrievalLegDuration.WithLabelValues(leg, status).Observe(durationSeconds)
}

// RecordLLMCall records an LLM completion call by purpose.
func RecordLLMCall(purpose, status string, durationSeconds float64) {
	LLMCalls.WithLabelValues(purpose, status).Inc()
	LLMCallDuration.WithLabelValues(purpose).Observe(durationSeconds)
}
