package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
)

// ErrNotFound is returned by GetDocument for an unknown chunk ID.
var ErrNotFound = errors.New("search: document not found")

// Client is a minimal HTTP client for an OpenSearch-compatible engine.
type Client struct {
	base  string
	index string
	user  string
	pass  string
	http  *http.Client
	log   *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.SearchConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:  cfg.BaseURL,
		index: cfg.Index,
		user:  cfg.Username,
		pass:  cfg.Password,
		http:  &http.Client{Timeout: timeout},
		log:   logger.With(zap.String("component", "search_client")),
	}
}

// Hit is one matched document from a _search response.
type Hit struct {
	ID     string          `json:"_id"`
	Score  float64         `json:"_score"`
	Source json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Hits []Hit `json:"hits"`
	} `json:"hits"`
}

type getResponse struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// Search posts a query body to the index's _search endpoint and returns the
// raw hits in engine order.
func (c *Client) Search(ctx context.Context, body map[string]any) ([]Hit, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s/_search", c.base, url.PathEscape(c.index))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search: engine status %d", resp.StatusCode)
	}
	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return sr.Hits.Hits, nil
}

// GetDocument fetches one chunk by ID from the index's _doc endpoint.
func (c *Client) GetDocument(ctx context.Context, id string) (*Document, error) {
	endpoint := fmt.Sprintf("%s/%s/_doc/%s", c.base, url.PathEscape(c.index), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get: engine status %d", resp.StatusCode)
	}
	var gr getResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode get response: %w", err)
	}
	if !gr.Found {
		return nil, ErrNotFound
	}
	var doc Document
	if err := json.Unmarshal(gr.Source, &doc); err != nil {
		return nil, fmt.Errorf("decode document source: %w", err)
	}
	if doc.ID == "" {
		doc.ID = gr.ID
	}
	return &doc, nil
}

func (c *Client) auth(req *http.Request) {
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
}
