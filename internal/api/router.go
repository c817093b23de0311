package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/fraudlens/internal/health"
)

// Router wraps the Gin router with handlers
type Router struct {
	engine  *gin.Engine
	handler *Handler
	monitor *health.Monitor
	log     *slog.Logger
}

// NewRouter creates a new Router with all handlers. monitor may be nil.
func NewRouter(analyzer Analyzer, monitor *health.Monitor) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:  gin.New(),
		handler: NewHandler(analyzer),
		monitor: monitor,
		log:     slog.Default().With("component", "api"),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware() {
	r.engine.Use(Recovery(r.log))
	r.engine.Use(Logger(r.log))
	r.engine.Use(CORS())
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handleHealth)
	r.engine.GET("/health/detailed", r.handleDetailed)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.engine.POST("/graph", r.handler.Graph)
	r.engine.POST("/analyze", r.handler.Analyze)

	reports := r.engine.Group("/reports")
	{
		reports.GET("", r.handler.ListReports)
		reports.GET("/:id", r.handler.GetReport)
		reports.GET("/:id/bundle", r.handler.GetBundle)
	}

	r.engine.GET("/abandoned", r.handler.ListAbandoned)
}

func (r *Router) handleHealth(c *gin.Context) {
	if r.monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusHealthy})
		return
	}

	report := r.monitor.CheckHealth(c.Request.Context())
	code := http.StatusOK
	if report.SystemStatus == health.StatusCritical {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": report.SystemStatus})
}

func (r *Router) handleDetailed(c *gin.Context) {
	if r.monitor == nil {
		c.JSON(http.StatusOK, health.HealthReport{SystemStatus: health.StatusHealthy})
		return
	}
	c.JSON(http.StatusOK, r.monitor.CheckHealth(c.Request.Context()))
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Server serves the router over HTTP.
type Server struct {
	server *http.Server
}

// NewServer creates a new HTTP server for the router.
func NewServer(r *Router, host string, port int) *Server {
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			Handler:           r.engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start starts the HTTP server. It returns http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
