// Package http provides the HTTP servers: the vault API consumed by the chat
// command layer and the Prometheus metrics server.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/flavortown/credvault/internal/config"
	"github.com/flavortown/credvault/internal/metrics"
	vaultHTTP "github.com/flavortown/credvault/internal/vault/http"
)

// Server represents the vault API HTTP server.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates the vault API server with its routes and middleware.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	vaultHandler *vaultHTTP.VaultHandler,
	meterProvider otelmetric.MeterProvider,
) *Server {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(requestid.New(
		requestid.WithGenerator(func() string {
			return uuid.NewString()
		}),
	))
	router.Use(CustomLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	if meterProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(meterProvider, cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1 := router.Group("/v1/vault")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, logger))
	}
	v1.POST("/login", vaultHandler.LoginHandler)
	v1.POST("/fetch", vaultHandler.FetchHandler)
	v1.POST("/logout", vaultHandler.LogoutHandler)
	v1.GET("/status", vaultHandler.StatusHandler)

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
