package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/conversation"
	"github.com/helixdocs/orchestrator/internal/embeddings"
	"github.com/helixdocs/orchestrator/internal/engine"
	"github.com/helixdocs/orchestrator/internal/httpapi"
	"github.com/helixdocs/orchestrator/internal/llm"
	"github.com/helixdocs/orchestrator/internal/search"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Redis backs both conversation checkpoints and the shared embedding cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	cancel()

	llmClient, err := llm.NewOpenAI(cfg.LLM, logger)
	if err != nil {
		logger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}

	provider, err := embeddings.NewOpenAIEmbedder(cfg.Embeddings)
	if err != nil {
		logger.Fatal("Failed to initialize embedding provider", zap.Error(err))
	}
	embedder := embeddings.NewService(provider, cfg.Embeddings, embeddings.NewRedisCache(redisClient), logger)

	searchClient := search.NewClient(cfg.Search, logger)
	retriever := search.NewHybrid(searchClient, embedder, cfg.Search, logger)

	checkpoints := conversation.NewRedisCheckpointer(redisClient, cfg.Memory.StateTTL, logger)

	var counter conversation.TokenCounter
	if tc, err := conversation.NewTiktokenCounter(cfg.LLM.Model); err == nil {
		counter = tc
	} else {
		logger.Warn("Tokenizer unavailable, using approximate counting", zap.Error(err))
	}
	memory := conversation.NewMemoryManager(llmClient, cfg.Memory, counter, logger)

	eng := engine.New(llmClient, checkpoints, retriever, memory, cfg.Research, logger)

	apiServer := httpapi.Start(httpapi.NewServer(cfg.Service, httpapi.NewHandler(eng, logger)), logger)

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Service.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("Starting metrics server", zap.Int("port", cfg.Service.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Hot-reload watcher logs configuration drift; live components keep the
	// settings they were built with.
	if watcher, err := config.NewWatcher(configPath, logger); err == nil {
		watcher.OnChange(func(updated *config.Config) {
			logger.Info("Configuration file changed; restart to apply",
				zap.Int("port", updated.Service.Port))
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Config watcher failed to start", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	logger.Info("Orchestrator ready",
		zap.Int("port", cfg.Service.Port),
		zap.String("search_index", cfg.Search.Index),
		zap.String("model", cfg.LLM.Model),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.GracefulTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("API server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Metrics server shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
