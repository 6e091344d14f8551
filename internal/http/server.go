// Package http provides the operator HTTP server: liveness, readiness and key
// cache administration for a running fieldcrypt process.
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

	keysUsecase "github.com/allisson/fieldcrypt/internal/keys/usecase"
	"github.com/allisson/fieldcrypt/internal/metrics"
)

// readinessTimeout bounds every readiness check.
const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can currently serve requests.
type ReadinessCheck func(ctx context.Context) error

// Server is the operator HTTP server.
type Server struct {
	server       *http.Server
	router       *gin.Engine
	logger       *slog.Logger
	keyDirectory keysUsecase.KeyDirectory
	checks       map[string]ReadinessCheck
}

// NewServer creates a new operator server. keyDirectory may be nil, in which
// case the key cache endpoints are not registered.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	keyDirectory keysUsecase.KeyDirectory,
	checks map[string]ReadinessCheck,
) *Server {
	return &Server{
		logger:       logger,
		keyDirectory: keyDirectory,
		checks:       checks,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin router. When metricsProvider is non-nil every
// request is also recorded in the HTTP metrics.
func (s *Server) SetupRouter(metricsProvider *metrics.Provider, metricsNamespace string) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace, "/health", "/ready"))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	if s.keyDirectory != nil {
		keys := router.Group("/keys")
		keys.GET("/cache", s.cacheStatsHandler)
		keys.DELETE("/cache", s.clearCacheHandler)
		keys.POST("/preload", s.preloadHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the operator server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		s.SetupRouter(nil, "")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the operator server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler runs every registered check. Any failure marks the
// process not ready; the key cache is reported but never gates readiness.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	ready := true
	components := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("readiness check failed",
				slog.String("component", name),
				slog.Any("error", err),
			)
			components[name] = "error"
			ready = false
			continue
		}
		components[name] = "ok"
	}

	body := gin.H{"components": components}
	if s.keyDirectory != nil {
		body["key_cache"] = s.keyDirectory.CacheStats()
	}

	if !ready {
		body["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["status"] = "ready"
	c.JSON(http.StatusOK, body)
}

func (s *Server) cacheStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.keyDirectory.CacheStats())
}

// clearCacheHandler forces the next lookup of every key-name to hit the
// secret store, which is how rotated keys are picked up before the TTL.
func (s *Server) clearCacheHandler(c *gin.Context) {
	s.keyDirectory.ClearCache()
	s.logger.Info("key cache cleared", slog.String("request_id", requestid.Get(c)))
	c.Status(http.StatusNoContent)
}

func (s *Server) preloadHandler(c *gin.Context) {
	report := s.keyDirectory.PreloadKeys(c.Request.Context())
	status := http.StatusOK
	if len(report.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, report)
}
