// Package embeddings turns query text into vectors for the knn retrieval
// leg, with a local LRU and optional Redis cache in front of the provider.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	lcembeddings "github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/metrics"
)

// Embedder produces a vector for a single piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyText is returned when the input has no content to embed.
var ErrEmptyText = errors.New("embeddings: empty text")

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	embedder lcembeddings.Embedder
	model    string
}

// NewOpenAIEmbedder builds a provider-backed embedder from configuration.
func NewOpenAIEmbedder(cfg config.EmbeddingsConfig) (*OpenAIEmbedder, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create embeddings client: %w", err)
	}
	embedder, err := lcembeddings.NewEmbedder(client, lcembeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("wrap embedder: %w", err)
	}
	return &OpenAIEmbedder{embedder: embedder, model: cfg.Model}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vecs, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embeddings: provider returned no vectors")
	}
	return vecs[0], nil
}

// Service fronts an Embedder with caching. The local LRU is always consulted
// first; Redis, when configured, is the shared second tier.
type Service struct {
	provider Embedder
	model    string
	local    *LocalLRU
	shared   Cache // nil when Redis is not configured
	ttl      time.Duration
	logger   *zap.Logger
}

// NewService wires the cache tiers around a provider. shared may be nil.
func NewService(provider Embedder, cfg config.EmbeddingsConfig, shared Cache, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		model:    cfg.Model,
		local:    NewLocalLRU(cfg.MaxLRU),
		shared:   shared,
		ttl:      cfg.CacheTTL,
		logger:   logger.With(zap.String("component", "embeddings")),
	}
}

// Embed implements Embedder with two cache tiers in front of the provider.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if s == nil || s.provider == nil {
		return nil, errors.New("embeddings: service not initialized")
	}
	if text == "" {
		return nil, ErrEmptyText
	}
	key := MakeKey(s.model, text)

	if vec, ok := s.local.Get(ctx, key); ok {
		metrics.EmbeddingRequests.WithLabelValues("cache_hit_local").Inc()
		return vec, nil
	}
	if s.shared != nil {
		if vec, ok := s.shared.Get(ctx, key); ok {
			metrics.EmbeddingRequests.WithLabelValues("cache_hit_shared").Inc()
			s.local.Set(ctx, key, vec, s.ttl)
			return vec, nil
		}
	}

	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		metrics.EmbeddingRequests.WithLabelValues("error").Inc()
		s.logger.Warn("embedding generation failed", zap.Error(err))
		return nil, err
	}
	metrics.EmbeddingRequests.WithLabelValues("generated").Inc()
	s.local.Set(ctx, key, vec, s.ttl)
	if s.shared != nil {
		s.shared.Set(ctx, key, vec, s.ttl)
	}
	return vec, nil
}
