// Package server exposes the estimator over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/piwi3910/SlabCount/internal/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// RouterConfig collects the handlers mounted by NewRouter.
type RouterConfig struct {
	EstimateHandler *EstimateHandler
	HealthHandler   *HealthHandler
	Log             *logger.Logger
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Log))

	r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	r.POST("/optimize", cfg.EstimateHandler.Optimize)
	r.POST("/estimate", cfg.EstimateHandler.Estimate)
	return r
}

// GinMode returns the gin mode matching a log mode: release for
// production logging, debug otherwise.
func GinMode(logMode string) string {
	switch strings.ToLower(logMode) {
	case "prod", "production":
		return gin.ReleaseMode
	}
	return gin.DebugMode
}

// Server wraps the configured engine.
type Server struct {
	Engine          *gin.Engine
	ShutdownTimeout time.Duration
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg), ShutdownTimeout: defaultShutdownTimeout}
}

// Run listens on address and serves until ctx is done, then shuts down
// gracefully. It returns nil after a shutdown triggered by ctx.
func (s *Server) Run(ctx context.Context, address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener, which it closes.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		timeout := s.ShutdownTimeout
		if timeout <= 0 {
			timeout = defaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
