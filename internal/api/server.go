package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/autoinvest/backend/pkg/config"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Server is the dashboard HTTP server
// ⭐ SSOT: API 서버 설정은 이 파일에서만
type Server struct {
	http   *http.Server
	logger *logger.Logger
}

// New creates the server on cfg.Port
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// 0: /ws/events streams stay open; the hub sets per-frame write deadlines
			WriteTimeout:   0,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 16,
		},
		logger: log.WithComponent("api").WithField("addr", ":"+cfg.Port),
	}
}

// OnShutdown registers fn to run when Shutdown starts. Hijacked websocket
// connections are not drained by http.Server, so the hub closes them here.
func (s *Server) OnShutdown(fn func()) {
	s.http.RegisterOnShutdown(fn)
}

// Start blocks serving requests until Shutdown
func (s *Server) Start() error {
	s.logger.Info("Starting API server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
