package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/metrics"
)

// defaultMaxCached bounds the local checkpoint cache when no limit is given.
const defaultMaxCached = 1000

// RedisCheckpointer stores state as JSON in Redis with a write-through local
// cache. The cache is an optimization only; Redis holds the truth.
type RedisCheckpointer struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger

	mu          sync.RWMutex
	localCache  map[string]*State
	cacheAccess map[string]time.Time
	maxCached   int
}

// NewRedisCheckpointer wires a checkpointer over an existing Redis client.
func NewRedisCheckpointer(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisCheckpointer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCheckpointer{
		client:      client,
		ttl:         ttl,
		logger:      logger.With(zap.String("component", "checkpointer")),
		localCache:  make(map[string]*State),
		cacheAccess: make(map[string]time.Time),
		maxCached:   defaultMaxCached,
	}
}

func (c *RedisCheckpointer) key(threadID string) string {
	return fmt.Sprintf("conversation:%s", threadID)
}

// Load implements Checkpointer.
func (c *RedisCheckpointer) Load(ctx context.Context, threadID string) (*State, error) {
	c.mu.RLock()
	if state, ok := c.localCache[threadID]; ok {
		c.mu.RUnlock()
		metrics.CheckpointCacheHits.Inc()
		c.mu.Lock()
		c.cacheAccess[threadID] = time.Now()
		c.mu.Unlock()
		return state.Clone(), nil
	}
	c.mu.RUnlock()
	metrics.CheckpointCacheMisses.Inc()

	data, err := c.client.Get(ctx, c.key(threadID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}

	c.mu.Lock()
	c.localCache[threadID] = state.Clone()
	c.cacheAccess[threadID] = time.Now()
	c.evictStale()
	metrics.CheckpointCacheSize.Set(float64(len(c.localCache)))
	c.mu.Unlock()

	return &state, nil
}

// Save implements Checkpointer.
func (c *RedisCheckpointer) Save(ctx context.Context, state *State) error {
	if state == nil || state.ThreadID == "" {
		return errors.New("checkpoint: state without thread id")
	}
	state.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := c.client.Set(ctx, c.key(state.ThreadID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	metrics.CheckpointsSaved.Inc()

	c.mu.Lock()
	c.localCache[state.ThreadID] = state.Clone()
	c.cacheAccess[state.ThreadID] = time.Now()
	c.evictStale()
	metrics.CheckpointCacheSize.Set(float64(len(c.localCache)))
	c.mu.Unlock()
	return nil
}

// Delete implements Checkpointer.
func (c *RedisCheckpointer) Delete(ctx context.Context, threadID string) (int, error) {
	removed := 0
	if state, err := c.Load(ctx, threadID); err == nil && state != nil {
		removed = len(state.Messages)
	}

	if err := c.client.Del(ctx, c.key(threadID)).Err(); err != nil {
		return 0, fmt.Errorf("delete checkpoint: %w", err)
	}

	c.mu.Lock()
	delete(c.localCache, threadID)
	delete(c.cacheAccess, threadID)
	metrics.CheckpointCacheSize.Set(float64(len(c.localCache)))
	c.mu.Unlock()

	c.logger.Info("deleted conversation state",
		zap.String("thread_id", threadID),
		zap.Int("messages_removed", removed))
	return removed, nil
}

// evictStale drops the least recently used half of the cache once it grows
// past maxCached. Caller must hold c.mu.
func (c *RedisCheckpointer) evictStale() {
	if len(c.localCache) <= c.maxCached {
		return
	}
	type accessEntry struct {
		id   string
		time time.Time
	}
	entries := make([]accessEntry, 0, len(c.localCache))
	for id := range c.localCache {
		entries = append(entries, accessEntry{id: id, time: c.cacheAccess[id]})
	}
	for i := 0; i < len(entries)-1; i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].time.Before(entries[i].time) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	toRemove := c.maxCached / 2
	for i := 0; i < toRemove && i < len(entries); i++ {
		delete(c.localCache, entries[i].id)
		delete(c.cacheAccess, entries[i].id)
		metrics.CheckpointCacheEvictions.Inc()
	}
}
