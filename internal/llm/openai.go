package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/metrics"
)

// maxJSONAttempts bounds re-asks when the model emits unparseable JSON.
const maxJSONAttempts = 3

// OpenAIClient implements Client against any OpenAI-compatible chat API.
type OpenAIClient struct {
	model       llms.Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewOpenAI builds a client from configuration. An empty BaseURL targets the
// public OpenAI endpoint; an empty APIKey is replaced with "none" so local
// compatible servers that ignore auth still work.
func NewOpenAI(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	token := cfg.APIKey
	if token == "" {
		token = "none"
	}
	opts := []openai.Option{
		openai.WithToken(token),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return &OpenAIClient{
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger.With(zap.String("component", "llm")),
	}, nil
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, purpose string, msgs []Message) (string, error) {
	start := time.Now()
	text, err := c.generate(ctx, msgs)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLMCall(purpose, status, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("completion failed",
			zap.String("purpose", purpose),
			zap.Error(err))
		return "", err
	}
	return text, nil
}

// CompleteJSON implements Client. It requests JSON-mode output and retries
// when the reply does not unmarshal into out.
func (c *OpenAIClient) CompleteJSON(ctx context.Context, purpose string, msgs []Message, out any) error {
	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxJSONAttempts; attempt++ {
		text, err := c.generate(ctx, msgs, llms.WithJSONMode())
		if err != nil {
			metrics.RecordLLMCall(purpose, "error", time.Since(start).Seconds())
			return err
		}
		if err := json.Unmarshal([]byte(StripFences(text)), out); err != nil {
			lastErr = err
			c.logger.Debug("json response did not parse",
				zap.String("purpose", purpose),
				zap.Int("attempt", attempt),
				zap.Error(err))
			continue
		}
		metrics.RecordLLMCall(purpose, "success", time.Since(start).Seconds())
		return nil
	}
	metrics.RecordLLMCall(purpose, "error", time.Since(start).Seconds())
	return fmt.Errorf("%w after %d attempts: %v", ErrMalformedJSON, maxJSONAttempts, lastErr)
}

func (c *OpenAIClient) generate(ctx context.Context, msgs []Message, extra ...llms.CallOption) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.MessageContent{
			Role:  chatRole(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	callOpts := append([]llms.CallOption{
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	}, extra...)

	resp, err := c.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func chatRole(r Role) schema.ChatMessageType {
	switch r {
	case RoleSystem:
		return schema.ChatMessageTypeSystem
	case RoleAI:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag. Models in JSON mode still occasionally wrap their output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line ("json", "python", ...).
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{[") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
