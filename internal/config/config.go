package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded from a yaml file with
// environment variable overrides (HELIXDOCS_ prefix, dots become underscores).
type Config struct {
	Service  ServiceConfig  `json:"service" yaml:"service" mapstructure:"service"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Redis    RedisConfig    `json:"redis" yaml:"redis" mapstructure:"redis"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Embeddings EmbeddingsConfig `json:"embeddings" yaml:"embeddings" mapstructure:"embeddings"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Memory   MemoryConfig   `json:"memory" yaml:"memory" mapstructure:"memory"`
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
}

// ServiceConfig contains basic service configuration.
type ServiceConfig struct {
	Port            int           `json:"port" yaml:"port" mapstructure:"port"`
	MetricsPort     int           `json:"metrics_port" yaml:"metrics_port" mapstructure:"metrics_port"`
	GracefulTimeout time.Duration `json:"graceful_timeout" yaml:"graceful_timeout" mapstructure:"graceful_timeout"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LoggingConfig controls zap logger construction.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // "json" or "console"
}

// RedisConfig configures the checkpoint store and embedding cache backend.
type RedisConfig struct {
	Addr         string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	Password     string        `json:"password" yaml:"password" mapstructure:"password"`
	DB           int           `json:"db" yaml:"db" mapstructure:"db"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig configures the chat-completion capability.
type LLMConfig struct {
	BaseURL     string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey      string        `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Model       string        `json:"model" yaml:"model" mapstructure:"model"`
	Temperature float64       `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// EmbeddingsConfig configures the embedding capability and its cache.
type EmbeddingsConfig struct {
	BaseURL  string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	APIKey   string        `json:"api_key" yaml:"api_key" mapstructure:"api_key"`
	Model    string        `json:"model" yaml:"model" mapstructure:"model"`
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxLRU   int           `json:"max_lru" yaml:"max_lru" mapstructure:"max_lru"`
}

// SearchConfig configures the search engine boundary.
type SearchConfig struct {
	BaseURL     string        `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Index       string        `json:"index" yaml:"index" mapstructure:"index"`
	Username    string        `json:"username" yaml:"username" mapstructure:"username"`
	Password    string        `json:"password" yaml:"password" mapstructure:"password"`
	TopK        int           `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	LexicalWeight float64     `json:"lexical_weight" yaml:"lexical_weight" mapstructure:"lexical_weight"`
	VectorWeight  float64     `json:"vector_weight" yaml:"vector_weight" mapstructure:"vector_weight"`
}

// MemoryConfig configures the conversation memory manager.
type MemoryConfig struct {
	TokenThreshold int           `json:"token_threshold" yaml:"token_threshold" mapstructure:"token_threshold"`
	KeepRecent     int           `json:"keep_recent" yaml:"keep_recent" mapstructure:"keep_recent"`
	StateTTL       time.Duration `json:"state_ttl" yaml:"state_ttl" mapstructure:"state_ttl"`
}

// ResearchConfig bounds the research loop.
type ResearchConfig struct {
	MaxPlanSteps    int `json:"max_plan_steps" yaml:"max_plan_steps" mapstructure:"max_plan_steps"`
	QueriesPerStep  int `json:"queries_per_step" yaml:"queries_per_step" mapstructure:"queries_per_step"`
	MaxParallelism  int `json:"max_parallelism" yaml:"max_parallelism" mapstructure:"max_parallelism"`
}

// Default returns the configuration used when no file or override is present.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Port:            8080,
			MetricsPort:     2112,
			GracefulTimeout: 15 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   2048,
			Timeout:     60 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Model:    "text-embedding-3-small",
			CacheTTL: time.Hour,
			MaxLRU:   2048,
		},
		Search: SearchConfig{
			BaseURL:       "http://localhost:9200",
			Index:         "docs_chunks",
			TopK:          5,
			Timeout:       5 * time.Second,
			LexicalWeight: 0.4,
			VectorWeight:  0.6,
		},
		Memory: MemoryConfig{
			TokenThreshold: 1000,
			KeepRecent:     3,
			StateTTL:       24 * time.Hour,
		},
		Research: ResearchConfig{
			MaxPlanSteps:   3,
			QueriesPerStep: 3,
			MaxParallelism: 3,
		},
	}
}

// Load reads configuration from path (or CONFIG_PATH, or ./config.yaml) and
// merges env overrides on top of defaults. A missing file is not an error:
// defaults plus env are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config.yaml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("HELIXDOCS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(underlying(err)) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be positive, got %d", c.Search.TopK)
	}
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.Memory.TokenThreshold <= 0 {
		return fmt.Errorf("memory.token_threshold must be positive, got %d", c.Memory.TokenThreshold)
	}
	if c.Memory.KeepRecent <= 0 {
		return fmt.Errorf("memory.keep_recent must be positive, got %d", c.Memory.KeepRecent)
	}
	if c.Research.QueriesPerStep <= 0 {
		return fmt.Errorf("research.queries_per_step must be positive, got %d", c.Research.QueriesPerStep)
	}
	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.port", cfg.Service.Port)
	v.SetDefault("service.metrics_port", cfg.Service.MetricsPort)
	v.SetDefault("service.graceful_timeout", cfg.Service.GracefulTimeout)
	v.SetDefault("service.read_timeout", cfg.Service.ReadTimeout)
	v.SetDefault("service.write_timeout", cfg.Service.WriteTimeout)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.dial_timeout", cfg.Redis.DialTimeout)
	v.SetDefault("redis.read_timeout", cfg.Redis.ReadTimeout)
	v.SetDefault("redis.write_timeout", cfg.Redis.WriteTimeout)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("embeddings.model", cfg.Embeddings.Model)
	v.SetDefault("embeddings.cache_ttl", cfg.Embeddings.CacheTTL)
	v.SetDefault("embeddings.max_lru", cfg.Embeddings.MaxLRU)
	v.SetDefault("search.base_url", cfg.Search.BaseURL)
	v.SetDefault("search.index", cfg.Search.Index)
	v.SetDefault("search.top_k", cfg.Search.TopK)
	v.SetDefault("search.timeout", cfg.Search.Timeout)
	v.SetDefault("search.lexical_weight", cfg.Search.LexicalWeight)
	v.SetDefault("search.vector_weight", cfg.Search.VectorWeight)
	v.SetDefault("memory.token_threshold", cfg.Memory.TokenThreshold)
	v.SetDefault("memory.keep_recent", cfg.Memory.KeepRecent)
	v.SetDefault("memory.state_ttl", cfg.Memory.StateTTL)
	v.SetDefault("research.max_plan_steps", cfg.Research.MaxPlanSteps)
	v.SetDefault("research.queries_per_step", cfg.Research.QueriesPerStep)
	v.SetDefault("research.max_parallelism", cfg.Research.MaxParallelism)
}

func underlying(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
