package search

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/metrics"
)

// Engine is the search-engine surface Hybrid needs. *Client satisfies it;
// tests substitute a fake.
type Engine interface {
	Search(ctx context.Context, body map[string]any) ([]Hit, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
}

// Embedder turns query text into a vector for the knn leg.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrAllLegsFailed is returned when neither retrieval leg produced candidates
// because both requests errored.
var ErrAllLegsFailed = errors.New("search: both retrieval legs failed")

// Hybrid runs the two-leg retrieval pipeline: classify, search both legs,
// fuse ranks, materialize the winners.
type Hybrid struct {
	engine      Engine
	embedder    Embedder
	topK        int
	lexWeight   float64
	vecWeight   float64
	includeCode bool
	logger      *zap.Logger
}

// NewHybrid wires a searcher from configuration.
func NewHybrid(engine Engine, embedder Embedder, cfg config.SearchConfig, logger *zap.Logger) *Hybrid {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Hybrid{
		engine:      engine,
		embedder:    embedder,
		topK:        topK,
		lexWeight:   cfg.LexicalWeight,
		vecWeight:   cfg.VectorWeight,
		includeCode: true,
		logger:      logger.With(zap.String("component", "hybrid_search")),
	}
}

// Search retrieves up to K documents for a query. A failed leg degrades to
// the other leg's results alone; the call errors only when both legs fail.
func (h *Hybrid) Search(ctx context.Context, query string) ([]Document, error) {
	return h.search(ctx, query, h.topK)
}

// SearchWithFilters oversamples 2x the target K, then locally filters by an
// allowed page-type set and/or a must-have-code predicate. It never
// re-queries on shortfall.
func (h *Hybrid) SearchWithFilters(ctx context.Context, query string, pageTypes []string, mustHaveCode bool) ([]Document, error) {
	docs, err := h.search(ctx, query, h.topK*2)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool, len(pageTypes))
	for _, pt := range pageTypes {
		allowed[pt] = true
	}
	filtered := make([]Document, 0, h.topK)
	for _, doc := range docs {
		if len(allowed) > 0 && !allowed[doc.PageType] {
			continue
		}
		if mustHaveCode && !doc.HasCode {
			continue
		}
		filtered = append(filtered, doc)
		if len(filtered) >= h.topK {
			break
		}
	}
	return filtered, nil
}

func (h *Hybrid) search(ctx context.Context, query string, topK int) ([]Document, error) {
	class := Classify(query)
	h.logger.Debug("hybrid search",
		zap.String("query", query),
		zap.String("class", string(class)))

	lexIDs, lexErr := h.runLeg(ctx, "lexical", LexicalBody(query, class, topK, h.includeCode))

	var vecIDs []string
	vecErr := error(nil)
	if vec, err := h.embedder.Embed(ctx, query); err != nil {
		vecErr = err
		metrics.RecordRetrievalLeg("vector", "error", 0)
		h.logger.Warn("query embedding failed, skipping vector leg", zap.Error(err))
	} else {
		vecIDs, vecErr = h.runLeg(ctx, "vector", VectorBody(vec, class, topK))
	}

	if lexErr != nil && vecErr != nil {
		return nil, ErrAllLegsFailed
	}

	fused := Fuse(lexIDs, vecIDs, h.lexWeight, h.vecWeight)
	metrics.FusionCandidates.Observe(float64(len(fused)))
	if len(fused) > topK {
		fused = fused[:topK]
	}

	docs := make([]Document, 0, len(fused))
	for _, cand := range fused {
		doc, err := h.engine.GetDocument(ctx, cand.ID)
		if err != nil {
			// A fused ID that no longer resolves is skipped, not fatal.
			metrics.MaterializationMisses.Inc()
			h.logger.Warn("failed to materialize document",
				zap.String("id", cand.ID),
				zap.Error(err))
			continue
		}
		doc.Score = cand.Score
		docs = append(docs, *doc)
	}
	metrics.RetrievalDocuments.Observe(float64(len(docs)))
	return docs, nil
}

func (h *Hybrid) runLeg(ctx context.Context, leg string, body map[string]any) ([]string, error) {
	start := time.Now()
	hits, err := h.engine.Search(ctx, body)
	if err != nil {
		metrics.RecordRetrievalLeg(leg, "error", time.Since(start).Seconds())
		h.logger.Warn("retrieval leg failed", zap.String("leg", leg), zap.Error(err))
		return nil, err
	}
	metrics.RecordRetrievalLeg(leg, "ok", time.Since(start).Seconds())
	ids := make([]string, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
