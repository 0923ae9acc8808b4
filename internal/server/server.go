// Package server wires the execution engine, node catalog and workflow store
// into the HTTP surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/internal/workflows"
	"github.com/flowgraph-go/pkg/config"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/metrics"
	"github.com/flowgraph-go/pkg/ratelimit"
)

type Server struct {
	config     *config.Config
	logger     logger.Logger
	httpServer *http.Server
}

// New builds the server. workflowService may be nil; the workflow endpoints
// then answer 503 while the engine endpoints stay fully functional.
func New(cfg *config.Config, log logger.Logger, eng *engine.Engine, registry *engine.Registry, workflowService *workflows.Service) *Server {
	handlers := NewHandlers(eng, registry, log)

	var wfHandlers *WorkflowHandlers
	if workflowService != nil {
		wfHandlers = NewWorkflowHandlers(workflowService, log)
	}

	limiter := ratelimit.NewTokenBucketLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	router := setupRouter(handlers, wfHandlers, limiter, log)

	return &Server{
		config: cfg,
		logger: log,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		},
	}
}

func setupRouter(h *Handlers, wf *WorkflowHandlers, limiter *ratelimit.TokenBucketLimiter, log logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(loggingMiddleware(log))

	router.GET("/health/live", h.Health)
	router.GET("/health/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	nodes := v1.Group("/nodes")
	{
		nodes.GET("", h.GetAllNodes)
		nodes.GET("/list", h.ListNodes)
		nodes.GET("/:type/schema", h.GetNodeSchema)
		nodes.POST("/execute", ratelimit.Middleware(limiter), h.ExecuteFlow)
	}

	workflowGroup := v1.Group("/workflows")
	if wf != nil {
		workflowGroup.GET("", wf.List)
		workflowGroup.POST("", wf.Create)
		workflowGroup.GET("/:id", wf.Get)
		workflowGroup.PUT("/:id", wf.Update)
		workflowGroup.DELETE("/:id", wf.Delete)
	} else {
		workflowGroup.Any("", persistenceDisabled)
		workflowGroup.Any("/:id", persistenceDisabled)
	}

	return router
}

func persistenceDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"detail": "Workflow persistence is disabled: no database configured",
	})
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "port", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func loggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, c.FullPath(), fmt.Sprintf("%d", status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(latency.Seconds())

		log.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", latency,
			"ip", c.ClientIP(),
		)
	}
}
