package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/helixdocs/orchestrator/internal/config"
)

// NewServer builds the API server. WriteTimeout bounds a whole streamed
// turn, so it is much larger than ReadTimeout.
func NewServer(cfg config.ServiceConfig, handler *Handler) *http.Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
}

// Start runs the server in a goroutine and returns it for shutdown.
func Start(srv *http.Server, logger *zap.Logger) *http.Server {
	go func() {
		logger.Info("Starting API server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API server failed", zap.Error(err))
		}
	}()
	return srv
}
