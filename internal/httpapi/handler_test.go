package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
	"github.com/helixdocs/orchestrator/internal/conversation"
	"github.com/helixdocs/orchestrator/internal/engine"
	"github.com/helixdocs/orchestrator/internal/llm"
	llmmock "github.com/helixdocs/orchestrator/internal/llm/mock"
	"github.com/helixdocs/orchestrator/internal/search"
)

type staticRetriever struct{ docs int }

func (r *staticRetriever) Search(ctx context.Context, query string) ([]search.Document, error) {
	docs := make([]search.Document, 0, r.docs)
	for i := 0; i < r.docs; i++ {
		id := fmt.Sprintf("%s-doc%d", query, i)
		docs = append(docs, search.Document{
			ID:        id,
			Content:   "content " + id,
			SourceURL: "https://docs.example.com/" + id,
		})
	}
	return docs, nil
}

func newTestServer(t *testing.T, client llm.Client) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cp := conversation.NewRedisCheckpointer(cli, time.Hour, zap.NewNop())
	memory := conversation.NewMemoryManager(client, config.MemoryConfig{TokenThreshold: 1000, KeepRecent: 3}, nil, zap.NewNop())
	eng := engine.New(client, cp, &staticRetriever{docs: 2}, memory, config.ResearchConfig{MaxPlanSteps: 3, QueriesPerStep: 3, MaxParallelism: 3}, zap.NewNop())

	mux := http.NewServeMux()
	NewHandler(eng, zap.NewNop()).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

func TestAskValidation(t *testing.T) {
	srv := newTestServer(t, llmmock.NewClient())

	for name, body := range map[string]string{
		"missing query":   `{"user_id":"u1","thread_id":"t1"}`,
		"blank query":     `{"user_query":"   ","user_id":"u1","thread_id":"t1"}`,
		"missing user_id": `{"user_query":"hello","thread_id":"t1"}`,
		"missing thread":  `{"user_query":"hello","user_id":"u1"}`,
		"not even json":   `{{{`,
	} {
		t.Run(name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/api/rag/ask", body)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var payload map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			assert.NotEmpty(t, payload["error"])
		})
	}
}

func TestAskSuccess(t *testing.T) {
	client := llmmock.NewClient()
	client.Queue(llm.PurposeRouter, `{"type":"general","logic":"small talk"}`)
	client.Queue(llm.PurposeDirect, "Hello there!")
	srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/rag/ask", `{"user_query":"hi","user_id":"u1","thread_id":"t1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result engine.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "success", result.Status)
	assert.Equal(t, "Hello there!", result.Response)
	assert.Equal(t, "general", result.Metadata.RouterType)
	assert.Equal(t, 2, result.Metadata.MessageCount)
}

// message is accepted as an alias for user_query.
func TestAskMessageAlias(t *testing.T) {
	client := llmmock.NewClient()
	client.Queue(llm.PurposeRouter, `{"type":"general","logic":"small talk"}`)
	client.Queue(llm.PurposeDirect, "Hi!")
	srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/rag/ask", `{"message":"hi","user_id":"u1","thread_id":"t1"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAskUpstreamError(t *testing.T) {
	client := llmmock.NewClient()
	client.Fail(llm.PurposeRouter, fmt.Errorf("model unavailable"))
	srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/rag/ask", `{"user_query":"hi","user_id":"u1","thread_id":"t1"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var result engine.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "error", result.Status)
	assert.NotEmpty(t, result.Error)
	assert.NotEmpty(t, result.Response)
}

func TestAskStreamSSE(t *testing.T) {
	client := llmmock.NewClient()
	client.Queue(llm.PurposeRouter, `{"type":"on-topic","logic":"docs question"}`)
	client.Queue(llm.PurposePlanner, `{"steps":["research widgets"]}`)
	client.Queue(llm.PurposeExpander, `{"queries":["widgets overview"]}`)
	client.Queue(llm.PurposeSynthesis, "Widgets are configured like so.")
	srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/rag/ask/stream",
		`{"user_query":"how do widgets work?","user_id":"u1","thread_id":"t-stream"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []engine.Event
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev engine.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())

	require.NotEmpty(t, events)
	assert.Equal(t, "start", events[0].Type)
	assert.Equal(t, "end", events[len(events)-1].Type)

	var sawChunk bool
	for _, ev := range events {
		if ev.Type == "response_chunk" {
			sawChunk = true
		}
	}
	assert.True(t, sawChunk, "expected a response_chunk event")
}

func TestAskStreamValidation(t *testing.T) {
	srv := newTestServer(t, llmmock.NewClient())

	resp := postJSON(t, srv.URL+"/api/rag/ask/stream", `{"user_query":"","user_id":"u1","thread_id":"t1"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryRoundTrip(t *testing.T) {
	client := llmmock.NewClient()
	client.Queue(llm.PurposeRouter, `{"type":"general","logic":"small talk"}`)
	client.Queue(llm.PurposeDirect, "Hello!")
	srv := newTestServer(t, client)

	resp := postJSON(t, srv.URL+"/api/rag/ask", `{"user_query":"hi","user_id":"u1","thread_id":"t-hist"}`)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/rag/history", `{"user_id":"u1","thread_id":"t-hist"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var hist engine.HistoryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hist))
	assert.Equal(t, "success", hist.Status)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "human", hist.Messages[0].Role)
	assert.Equal(t, "ai", hist.Messages[1].Role)
	assert.Equal(t, 2, hist.Metadata.TotalMessages)

	// Delete and confirm the thread is gone.
	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/rag/history",
		strings.NewReader(`{"user_id":"u1","thread_id":"t-hist"}`))
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	var del engine.DeleteResult
	require.NoError(t, json.NewDecoder(delResp.Body).Decode(&del))
	assert.True(t, del.Deleted)
	assert.Equal(t, "success", del.Status)

	resp = postJSON(t, srv.URL+"/api/rag/history", `{"user_id":"u1","thread_id":"t-hist"}`)
	defer resp.Body.Close()
	var gone engine.HistoryResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&gone))
	assert.Equal(t, "not_found", gone.Status)
}

func TestHistoryValidation(t *testing.T) {
	srv := newTestServer(t, llmmock.NewClient())

	resp := postJSON(t, srv.URL+"/api/rag/history", `{"thread_id":"t1"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, llmmock.NewClient())

	resp, err := http.Get(srv.URL + "/api/rag/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, ServiceName, payload["service"])
	assert.Equal(t, ServiceVersion, payload["version"])
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, llmmock.NewClient())

	resp, err := http.Get(srv.URL + "/api/rag/ask")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/rag/health", `{}`)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
