package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/application/analysis"
	"github.com/openlongevity/longmap/internal/domain/gap"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	defaultGapLimit = 50
	maxGapLimit     = 500
)

// GapHandler serves the capability-gap endpoints.
type GapHandler struct {
	gaps     gap.Repository
	analysis *analysis.Service
	logger   logging.Logger
}

func NewGapHandler(gaps gap.Repository, analysisSvc *analysis.Service, logger logging.Logger) *GapHandler {
	return &GapHandler{
		gaps:     gaps,
		analysis: analysisSvc,
		logger:   logger.Named("gap_handler"),
	}
}

// List handles GET /gaps. Gaps come back highest impact first; the
// min_blocked_value floor is applied to the page after the priority filter.
func (h *GapHandler) List(c *gin.Context) {
	filter := gap.ListFilter{
		Limit:  boundLimit(queryInt(c, "limit", defaultGapLimit), defaultGapLimit, maxGapLimit),
		Offset: queryInt(c, "offset", 0),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if raw := c.Query("priority"); raw != "" {
		p := gap.Priority(raw)
		if !p.IsValid() {
			respondError(c, errors.InvalidParam("unknown priority: "+raw))
			return
		}
		filter.Priority = &p
	}
	minBlocked := queryFloat(c, "min_blocked_value", 0)

	ctx := c.Request.Context()
	gaps, err := h.gaps.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if minBlocked > 0 {
		filtered := gaps[:0]
		for _, g := range gaps {
			if g.BlockedResearchValue >= minBlocked {
				filtered = append(filtered, g)
			}
		}
		gaps = filtered
	}

	total, err := h.gaps.Count(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, gaps, total, filter.Limit, filter.Offset)
}

// Get handles GET /gaps/:id.
func (h *GapHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	g, err := h.gaps.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, g)
}

// FundingPotential handles GET /gaps/funding-potential.
func (h *GapHandler) FundingPotential(c *gin.Context) {
	ranked, err := h.analysis.FundingRanking(c.Request.Context(), queryInt(c, "top_n", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, ranked)
}
