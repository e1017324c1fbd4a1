// Package httpapi exposes the conversation engine over HTTP: a blocking
// ask endpoint, an SSE stream of turn events, conversation history
// retrieval and deletion, and a health probe.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/engine"
)

// ServiceName and ServiceVersion are reported by the health endpoint.
const (
	ServiceName    = "helixdocs-orchestrator"
	ServiceVersion = "1.0.0"
)

// Handler serves the /api/rag endpoints.
type Handler struct {
	engine *engine.Engine
	logger *zap.Logger
}

// NewHandler creates a new handler.
func NewHandler(eng *engine.Engine, logger *zap.Logger) *Handler {
	return &Handler{engine: eng, logger: logger.With(zap.String("component", "httpapi"))}
}

// RegisterRoutes registers the RAG endpoints on the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/rag/ask", h.handleAsk)
	mux.HandleFunc("/api/rag/ask/stream", h.handleAskStream)
	mux.HandleFunc("/api/rag/history", h.handleHistory)
	mux.HandleFunc("/api/rag/health", h.handleHealth)
}

// askRequest is the payload for /ask and /ask/stream. Both user_query and
// message are accepted for the query text; user_query wins when both are set.
type askRequest struct {
	UserQuery string `json:"user_query"`
	Message   string `json:"message"`
	UserID    string `json:"user_id"`
	ThreadID  string `json:"thread_id"`
}

// validate trims and checks the required fields, returning the query text.
func (r *askRequest) validate() (string, error) {
	query := strings.TrimSpace(r.UserQuery)
	if query == "" {
		query = strings.TrimSpace(r.Message)
	}
	if query == "" {
		return "", errors.New("user_query/message is required and cannot be empty")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return "", errors.New("user_id is required and cannot be empty")
	}
	if strings.TrimSpace(r.ThreadID) == "" {
		return "", errors.New("thread_id is required and cannot be empty")
	}
	return query, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleAsk runs a full turn and returns the final result.
// POST /api/rag/ask
func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	query, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Received ask request",
		zap.String("user_id", req.UserID),
		zap.String("thread_id", req.ThreadID),
	)

	result, err := h.engine.Ask(r.Context(), query, strings.TrimSpace(req.UserID), strings.TrimSpace(req.ThreadID))
	if err != nil {
		if errors.Is(err, engine.ErrTurnInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Ask failed", zap.String("thread_id", req.ThreadID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "error processing request")
		return
	}
	if result.Status == "error" {
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAskStream runs a turn and relays its events as Server-Sent Events,
// one `data:` frame per event, until the terminal end or error event.
// POST /api/rag/ask/stream
func (h *Handler) handleAskStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	query, err := req.validate()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, err := h.engine.AskStream(r.Context(), query, strings.TrimSpace(req.UserID), strings.TrimSpace(req.ThreadID))
	if err != nil {
		if errors.Is(err, engine.ErrTurnInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Info("Started streaming turn",
		zap.String("user_id", req.UserID),
		zap.String("thread_id", req.ThreadID),
	)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", zap.String("thread_id", req.ThreadID))
			return
		case evt, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				h.logger.Error("marshal stream event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// historyRequest is the payload for history retrieval and deletion.
type historyRequest struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
	Limit    int    `json:"limit"`
}

func (r *historyRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required and cannot be empty")
	}
	if strings.TrimSpace(r.ThreadID) == "" {
		return errors.New("thread_id is required and cannot be empty")
	}
	return nil
}

// handleHistory retrieves (POST) or deletes (DELETE) a thread's history.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPost:
		result, err := h.engine.History(r.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.ThreadID), req.Limit)
		if err != nil {
			h.logger.Error("History lookup failed", zap.String("thread_id", req.ThreadID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "error retrieving history")
			return
		}
		writeJSON(w, http.StatusOK, result)
	case http.MethodDelete:
		result, err := h.engine.DeleteHistory(r.Context(), strings.TrimSpace(req.UserID), strings.TrimSpace(req.ThreadID))
		if err != nil {
			h.logger.Error("History deletion failed", zap.String("thread_id", req.ThreadID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "error deleting history")
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHealth reports liveness.
// GET /api/rag/health
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
		"version": ServiceVersion,
	})
}
