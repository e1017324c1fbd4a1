package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/helixdocs/orchestrator/internal/search"
)

// Retriever is the hybrid search surface the research loop fans out to.
// *search.Hybrid satisfies it.
type Retriever interface {
	Search(ctx context.Context, query string) ([]search.Document, error)
}

// researcher executes one research step: expand it into sub-queries, run
// retrieval for every sub-query concurrently, and concatenate the results.
type researcher struct {
	expander    *expander
	retriever   Retriever
	parallelism int
	logger      *zap.Logger
}

func (r *researcher) research(ctx context.Context, step string) ([]search.Document, error) {
	queries, err := r.expander.expand(ctx, step)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var docs []search.Document

	g, gctx := errgroup.WithContext(ctx)
	if r.parallelism > 0 {
		g.SetLimit(r.parallelism)
	}
	for _, query := range queries {
		query := query
		g.Go(func() error {
			results, err := r.retriever.Search(gctx, query)
			if err != nil {
				// Retrieval failures degrade the step, they do not abort it.
				r.logger.Warn("retrieval failed for sub-query",
					zap.String("query", query),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			docs = append(docs, results...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("research step complete",
		zap.String("step", step),
		zap.Int("queries", len(queries)),
		zap.Int("documents", len(docs)))
	return docs, nil
}
