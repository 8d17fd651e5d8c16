// Package httpapi exposes the read endpoints, the manual update trigger, and
// the heatmap page over gin.
package httpapi

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"groundwatch/internal/models"
	"groundwatch/internal/scheduler"
	"groundwatch/internal/stats"
)

//go:embed web/index.html
var heatmapPage []byte

// RecordSource reads the current stored row set.
type RecordSource interface {
	ListRecords(ctx context.Context) ([]models.GroundwaterRecord, error)
}

// CycleTrigger starts one load cycle on demand.
type CycleTrigger interface {
	TriggerNow(ctx context.Context) (models.CycleReport, error)
}

// Server bundles router and dependencies for the REST API.
type Server struct {
	addr    string
	source  RecordSource
	trigger CycleTrigger
	engine  *gin.Engine
	logger  *slog.Logger
}

// New constructs a server with routes and middleware.
func New(addr, bearerToken string, source RecordSource, trigger CycleTrigger, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	server := &Server{addr: addr, source: source, trigger: trigger, engine: engine, logger: logger}
	server.registerRoutes(bearerToken)
	return server
}

// Engine exposes the underlying gin engine (for tests).
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(bearerToken string) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/", s.handleHeatmap)

	v1 := s.engine.Group("/api/v1")
	if bearerToken != "" {
		v1.Use(bearerAuthMiddleware(bearerToken))
	}
	v1.GET("/data", s.handleData)
	v1.GET("/stats", s.handleStats)
	v1.POST("/update", s.handleUpdate)
}

// handleData returns the current stored rows.
// GET /api/v1/data
func (s *Server) handleData(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	records, err := s.source.ListRecords(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": records,
		"meta": gin.H{
			"count": len(records),
		},
	})
}

// handleStats returns the aggregate summary over the stored rows.
// GET /api/v1/stats
func (s *Server) handleStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	records, err := s.source.ListRecords(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats.Summarize(records))
}

// handleUpdate synchronously runs one load cycle and returns its counts.
// POST /api/v1/update
func (s *Server) handleUpdate(c *gin.Context) {
	// A cycle must survive the client hanging up mid-run; cancelling between
	// clear and insert would leave the table empty.
	ctx := context.WithoutCancel(c.Request.Context())

	report, err := s.trigger.TriggerNow(ctx)
	if err != nil {
		if errors.Is(err, scheduler.ErrCycleRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": len(report.Errors) == 0, "report": report})
}

// handleHeatmap serves the embedded Leaflet heatmap page.
// GET /
func (s *Server) handleHeatmap(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", heatmapPage)
}

func bearerAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if token != expected {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
