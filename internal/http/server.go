// Package http provides the diagnostics HTTP server: health and readiness probes,
// Prometheus metrics, the recent error log and the stored key inventory.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ribbonapp/ribbon-core/internal/errorlog"
	"github.com/ribbonapp/ribbon-core/internal/httputil"
	"github.com/ribbonapp/ribbon-core/internal/metrics"
	storageDomain "github.com/ribbonapp/ribbon-core/internal/storage/domain"
)

// StorageInspector is the read-only view of the storage service used by the server.
type StorageInspector interface {
	State() storageDomain.State
	GetAllKeys(ctx context.Context) ([]string, error)
}

// ErrorSource exposes the buffered error log.
type ErrorSource interface {
	GetErrors() []errorlog.Entry
	Pending() int
}

// Server is the diagnostics HTTP server.
type Server struct {
	server  *http.Server
	router  *gin.Engine
	logger  *slog.Logger
	storage StorageInspector
	errors  ErrorSource
}

// NewServer creates a diagnostics server. Call SetupRouter before Start.
func NewServer(
	storage StorageInspector,
	errorSource ErrorSource,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		logger:  logger,
		storage: storage,
		errors:  errorSource,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers the routes. With a metrics provider the router also
// records its own request metrics and serves /metrics.
func (s *Server) SetupRouter(metricsProvider *metrics.Provider, metricsNamespace string) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(CustomLoggerMiddleware(s.logger))
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	if metricsProvider != nil {
		router.GET("/metrics", gin.WrapH(metricsProvider.Handler()))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	debug := router.Group("/debug")
	debug.GET("/errors", s.errorsHandler)
	debug.GET("/storage/keys", s.storageKeysHandler)

	s.router = router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready once the storage service has been initialized.
func (s *Server) readinessHandler(c *gin.Context) {
	state := storageDomain.StateUninitialized
	if s.storage != nil {
		state = s.storage.State()
	}

	status, code := "ready", http.StatusOK
	if state != storageDomain.StateReady {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": gin.H{"storage": state.String()},
	})
}

type errorsResponse struct {
	Data    []errorlog.Entry `json:"data"`
	Total   int              `json:"total"`
	Pending int              `json:"pending"`
}

// errorsHandler lists buffered errors, newest first.
func (s *Server) errorsHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleErrorGin(c, err, s.logger)
		return
	}

	var entries []errorlog.Entry
	pending := 0
	if s.errors != nil {
		entries = s.errors.GetErrors()
		pending = s.errors.Pending()
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	c.JSON(http.StatusOK, errorsResponse{
		Data:    httputil.Page(entries, offset, limit),
		Total:   len(entries),
		Pending: pending,
	})
}

func (s *Server) storageKeysHandler(c *gin.Context) {
	if s.storage == nil {
		httputil.HandleErrorGin(c, errors.New("storage is not configured"), s.logger)
		return
	}

	keys, err := s.storage.GetAllKeys(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, s.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.SetupRouter(nil, "")
	}
	s.server.Handler = s.router

	s.logger.Info("starting diagnostics server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down diagnostics server")
	return s.server.Shutdown(ctx)
}
