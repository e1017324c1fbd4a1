package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.SearchConfig{
		BaseURL:  srv.URL,
		Index:    "docs_chunks",
		Username: "reader",
		Password: "secret",
		Timeout:  2 * time.Second,
	}, zap.NewNop())
}

func TestClientSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs_chunks/_search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "reader" || pass != "secret" {
			t.Errorf("basic auth not forwarded")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		w.Write([]byte(`{"hits":{"hits":[{"_id":"c1","_score":2.5},{"_id":"c2","_score":1.0}]}}`))
	})

	hits, err := c.Search(context.Background(), map[string]any{"size": 10})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "c1" || hits[1].ID != "c2" {
		t.Fatalf("unexpected hits: %+v", hits)
	}
}

func TestClientSearchEngineError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "shard failure", http.StatusInternalServerError)
	})
	if _, err := c.Search(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error on engine 500")
	}
}

func TestClientGetDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs_chunks/_doc/c1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"_id":"c1","found":true,"_source":{"heading":"Setup","full_text":"install it","source_url":"https://docs.example.com/setup","has_code":false}}`))
	})

	doc, err := c.GetDocument(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.ID != "c1" {
		t.Fatalf("missing id fallback from _id, got %q", doc.ID)
	}
	if doc.Content != "install it" || doc.Heading != "Setup" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestClientGetDocumentNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	if _, err := c.GetDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
