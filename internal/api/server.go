// Package api serves the hourly sheet over HTTP with gin.
package api

import (
	"net/http"

	"hourlysheet/app"
	"hourlysheet/internal/logging"
	"hourlysheet/internal/monitoring"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options tunes the server
type Options struct {
	ImportFile string // imported when a request names no file
	GinMode    string
	Metrics    *monitoring.Registry // nil disables /metrics
}

// Server owns the gin router
type Server struct {
	router  *gin.Engine
	service *app.HourlySheetService
	hub     *ActivityHub // nil disables /api/events
	options Options
	log     *zap.SugaredLogger
}

// NewServer creates a server with every route registered. hub may be nil.
func NewServer(service *app.HourlySheetService, hub *ActivityHub, options Options, log *zap.SugaredLogger) *Server {
	if options.GinMode != "" {
		gin.SetMode(options.GinMode)
	}

	s := &Server{
		router:  gin.New(),
		service: service,
		hub:     hub,
		options: options,
		log:     logging.OrNop(log),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(RequestLogger(s.log))
	if s.options.Metrics != nil {
		s.router.Use(RequestMetrics(s.options.Metrics))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	if s.options.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.options.Metrics.Handler()))
	}

	api := s.router.Group("/api")
	{
		api.GET("/records", s.handleListRecords)
		api.POST("/records", s.handleAddRecord)
		api.POST("/import", s.handleImport)
		api.GET("/export", s.handleExport)
		api.GET("/stats", s.handleStats)
		api.POST("/ask", s.handleAsk)

		api.GET("/model", s.handleModelStatus)
		api.POST("/model/fit", s.handleFit)

		api.GET("/machines/:id/risk", s.handleRisk)
		api.GET("/machines/:id/target", s.handleTarget)
		api.POST("/machines/:id/issues", s.handleIssue)

		api.GET("/anomalies", s.handleAnomalies)
		api.GET("/history", s.handleHistory)
		if s.hub != nil {
			api.GET("/events", s.hub.HandleSSE)
		}
	}
}
