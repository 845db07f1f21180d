// Package http wires the gin router, middleware, and the HTTP server for
// the public API.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/interfaces/http/handlers"
	"github.com/openlongevity/longmap/internal/interfaces/http/middleware"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/prometheus"
)

// RouterConfig carries the handlers and cross-cutting dependencies the
// router mounts. Nil handlers skip their route group, which keeps partial
// wiring (tests, the worker's status server) possible.
type RouterConfig struct {
	Problems     *handlers.ProblemHandler
	Capabilities *handlers.CapabilityHandler
	Resources    *handlers.ResourceHandler
	Gaps         *handlers.GapHandler
	Analysis     *handlers.AnalysisHandler
	Health       *handlers.HealthHandler

	Metrics *prometheus.Metrics
	Logger  logging.Logger
}

// NewRouter assembles the gin engine with recovery, request logging, CORS,
// the probe endpoints, and every registered handler group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger, cfg.Metrics))
	r.Use(middleware.CORS())

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	if h := cfg.Problems; h != nil {
		v1.GET("/problems", h.List)
		v1.POST("/problems", h.Create)
		v1.GET("/problems/:id", h.Get)
		v1.GET("/problems/:id/capabilities", h.Capabilities)
	}
	if h := cfg.Capabilities; h != nil {
		v1.GET("/capabilities", h.List)
		v1.GET("/capabilities/:id", h.Get)
		v1.GET("/capabilities/:id/resources", h.Resources)
	}
	if h := cfg.Resources; h != nil {
		v1.GET("/resources", h.List)
		v1.POST("/resources", h.Create)
		v1.GET("/resources/:id", h.Get)
		v1.GET("/resources/:id/similar", h.Similar)
		v1.DELETE("/resources/:id", h.Deactivate)
	}
	if h := cfg.Gaps; h != nil {
		v1.GET("/gaps", h.List)
		v1.GET("/gaps/funding-potential", h.FundingPotential)
		v1.GET("/gaps/:id", h.Get)
	}
	if h := cfg.Analysis; h != nil {
		v1.GET("/matrix/problem-capability", h.Matrix)
		v1.GET("/keystone-capabilities", h.Keystones)
		v1.GET("/duplication-clusters", h.DuplicationClusters)
		v1.GET("/coordination-opportunities", h.CoordinationOpportunities)
		v1.GET("/stats", h.Stats)
		v1.POST("/analysis/run", h.RunAnalysis)
		v1.POST("/fetch/run", h.RunFetch)
		v1.GET("/fetch/status", h.FetchStatus)
	}

	return r
}
