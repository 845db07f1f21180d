package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/application/analysis"
	"github.com/openlongevity/longmap/internal/application/fetchstatus"
	"github.com/openlongevity/longmap/internal/application/ingest"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

// fetchRunTimeout bounds a background fetch kicked off over HTTP; the
// request itself returns immediately.
const fetchRunTimeout = 30 * time.Minute

// AnalysisHandler serves the cross-entity reports plus the fetch and
// analysis triggers.
type AnalysisHandler struct {
	analysis *analysis.Service
	runner   *ingest.Runner
	tracker  *fetchstatus.Tracker
	logger   logging.Logger
}

func NewAnalysisHandler(
	analysisSvc *analysis.Service,
	runner *ingest.Runner,
	tracker *fetchstatus.Tracker,
	logger logging.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		analysis: analysisSvc,
		runner:   runner,
		tracker:  tracker,
		logger:   logger.Named("analysis_handler"),
	}
}

// Matrix handles GET /matrix/problem-capability.
func (h *AnalysisHandler) Matrix(c *gin.Context) {
	rows, err := h.analysis.Matrix(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rows)
}

// Keystones handles GET /keystone-capabilities.
func (h *AnalysisHandler) Keystones(c *gin.Context) {
	keystones, err := h.analysis.Keystones(c.Request.Context(), queryInt(c, "top_n", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, keystones)
}

// DuplicationClusters handles GET /duplication-clusters.
func (h *AnalysisHandler) DuplicationClusters(c *gin.Context) {
	clusters, err := h.analysis.DuplicationClusters(c.Request.Context(), queryInt(c, "min_groups", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, clusters)
}

// CoordinationOpportunities handles GET /coordination-opportunities.
func (h *AnalysisHandler) CoordinationOpportunities(c *gin.Context) {
	opportunities, err := h.analysis.CoordinationOpportunities(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, opportunities)
}

// Stats handles GET /stats.
func (h *AnalysisHandler) Stats(c *gin.Context) {
	stats, err := h.analysis.PlatformStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// RunAnalysis handles POST /analysis/run. The pass runs synchronously; it
// pages the whole catalog but stays well within a request deadline.
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
	summary, err := h.analysis.RunGapAnalysis(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}

// RunFetch handles POST /fetch/run. The source poll runs in the background
// with its own deadline; progress is visible through FetchStatus. The
// tracker rejects overlapping runs, so only one fetch is ever in flight.
func (h *AnalysisHandler) RunFetch(c *gin.Context) {
	if h.tracker.Snapshot().Running {
		respondError(c, errors.Conflict("a fetch run is already in progress"))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), fetchRunTimeout)
		defer cancel()
		if _, err := h.runner.Run(ctx); err != nil {
			h.logger.Warn("background fetch failed", logging.Err(err))
		}
	}()
	respond(c, http.StatusAccepted, gin.H{"status": "started"})
}

// FetchStatus handles GET /fetch/status.
func (h *AnalysisHandler) FetchStatus(c *gin.Context) {
	respond(c, http.StatusOK, h.tracker.Snapshot())
}
