package embeddings

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
)

type stubProvider struct {
	calls int
	vec   []float32
	err   error
}

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func testConfig() config.EmbeddingsConfig {
	return config.EmbeddingsConfig{
		Model:    "test-embed",
		CacheTTL: time.Minute,
		MaxLRU:   8,
	}
}

func TestUninitializedService(t *testing.T) {
	var s *Service
	if _, err := s.Embed(context.Background(), "hello"); err == nil {
		t.Fatalf("expected error when service is nil")
	}
}

func TestEmbedEmptyText(t *testing.T) {
	s := NewService(&stubProvider{vec: []float32{1}}, testConfig(), nil, zap.NewNop())
	if _, err := s.Embed(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty text")
	}
}

func TestLocalCacheHit(t *testing.T) {
	p := &stubProvider{vec: []float32{0.1, 0.2, 0.3}}
	s := NewService(p, testConfig(), nil, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		vec, err := s.Embed(ctx, "same query")
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if len(vec) != 3 {
			t.Fatalf("unexpected vector length %d", len(vec))
		}
	}
	if p.calls != 1 {
		t.Fatalf("provider called %d times, want 1", p.calls)
	}
}

func TestSharedCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	shared := NewRedisCache(cli)
	ctx := context.Background()

	p := &stubProvider{vec: []float32{1.5, -2.25}}
	s1 := NewService(p, testConfig(), shared, zap.NewNop())
	if _, err := s1.Embed(ctx, "query"); err != nil {
		t.Fatalf("embed: %v", err)
	}

	// A second instance with a cold local cache should hit Redis, not the provider.
	p2 := &stubProvider{vec: []float32{9, 9}}
	s2 := NewService(p2, testConfig(), shared, zap.NewNop())
	vec, err := s2.Embed(ctx, "query")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if p2.calls != 0 {
		t.Fatalf("provider called %d times, want 0", p2.calls)
	}
	if vec[0] != 1.5 || vec[1] != -2.25 {
		t.Fatalf("unexpected vector from shared cache: %v", vec)
	}
}

func TestLocalLRUEviction(t *testing.T) {
	l := NewLocalLRU(2)
	ctx := context.Background()
	l.Set(ctx, "a", []float32{1}, time.Minute)
	l.Set(ctx, "b", []float32{2}, time.Minute)
	l.Set(ctx, "c", []float32{3}, time.Minute)

	if _, ok := l.Get(ctx, "a"); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	if _, ok := l.Get(ctx, "c"); !ok {
		t.Fatalf("newest entry missing")
	}
	if l.Len() != 2 {
		t.Fatalf("len = %d, want 2", l.Len())
	}
}

func TestLocalLRUExpiry(t *testing.T) {
	l := NewLocalLRU(4)
	ctx := context.Background()
	l.Set(ctx, "a", []float32{1}, -time.Second)
	if _, ok := l.Get(ctx, "a"); ok {
		t.Fatalf("expired entry should not be returned")
	}
}

func TestMakeKeyDistinguishesModels(t *testing.T) {
	if MakeKey("m1", "text") == MakeKey("m2", "text") {
		t.Fatalf("keys for different models should differ")
	}
	if MakeKey("m1", "text") != MakeKey("m1", "text") {
		t.Fatalf("key derivation should be deterministic")
	}
}
