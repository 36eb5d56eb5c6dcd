// Package api exposes the engine over HTTP: analysis submission and
// retrieval, progress event streaming, collection stats, health, and
// metrics.
package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/onco-evidence-engine/internal/domain"
	"github.com/onco-evidence-engine/internal/metrics"
	"github.com/onco-evidence-engine/internal/middleware"
	"github.com/onco-evidence-engine/internal/orchestrator"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	orch          *orchestrator.Orchestrator
	store         domain.EvidenceStore
	collector     *metrics.Collector
	log           *logrus.Logger
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	orch *orchestrator.Orchestrator,
	store domain.EvidenceStore,
	collector *metrics.Collector,
	logger *logrus.Logger,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CorrelationID())
	router.Use(corsMiddleware())

	server := &Server{
		configManager: configManager,
		orch:          orch,
		store:         store,
		collector:     collector,
		log:           logger,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetConfig().Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", s.handleMetrics)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/analyses", s.handleCreateAnalysis)
		v1.GET("/analyses/:id", s.handleGetAnalysis)
		v1.GET("/events/stream", s.handleEventStream)
		v1.GET("/collections/stats", s.handleCollectionStats)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if err := s.store.Health(c.Request.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// handleMetrics serves a snapshot of the in-process metrics
func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.collector.Snapshot())
}

// handleCreateAnalysis runs the full pipeline for a submitted profile and
// returns the assembled analysis and packet
func (s *Server) handleCreateAnalysis(c *gin.Context) {
	var profile domain.PatientProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": domain.NewAnalysisError(domain.ErrInvalidProfile, "malformed profile", err.Error()),
		})
		return
	}

	result, err := s.orch.Analyze(c.Request.Context(), profile)
	if err != nil {
		c.JSON(statusForKind(domain.ErrorKind(err)), gin.H{"error": err})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis": result.Analysis,
		"packet":   result.Packet,
	})
}

// handleGetAnalysis returns a persisted analysis by id
func (s *Server) handleGetAnalysis(c *gin.Context) {
	analysis, err := s.orch.GetAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if analysis == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found"})
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// handleEventStream streams progress events over SSE until the client
// disconnects
func (s *Server) handleEventStream(c *gin.Context) {
	events, cancel := s.orch.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	caseFilter := c.Query("case_id")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			if caseFilter != "" && event.CaseID != caseFilter {
				return true
			}
			c.SSEvent("progress", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// handleCollectionStats returns per-collection document counts
func (s *Server) handleCollectionStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// statusForKind maps analysis error kinds onto HTTP status codes
func statusForKind(kind string) int {
	switch kind {
	case domain.ErrInvalidProfile:
		return http.StatusBadRequest
	case domain.ErrNoEvidenceFound:
		return http.StatusNotFound
	case domain.ErrSourceUnavailable, domain.ErrDownstreamTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-Correlation-ID")
		c.Header("Access-Control-Expose-Headers", "Content-Length")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
