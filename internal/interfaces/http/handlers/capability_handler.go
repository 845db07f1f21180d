package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	defaultCapabilityLimit = 100
	maxCapabilityLimit     = 1000
)

// CapabilityHandler serves the capability catalog endpoints.
type CapabilityHandler struct {
	capabilities capability.Repository
	resources    resource.Repository
	mappings     mapping.CapabilityResourceRepository
	logger       logging.Logger
}

func NewCapabilityHandler(
	capabilities capability.Repository,
	resources resource.Repository,
	mappings mapping.CapabilityResourceRepository,
	logger logging.Logger,
) *CapabilityHandler {
	return &CapabilityHandler{
		capabilities: capabilities,
		resources:    resources,
		mappings:     mappings,
		logger:       logger.Named("capability_handler"),
	}
}

// List handles GET /capabilities. The type filter is applied after the
// page load; the catalog is small enough that this stays cheap.
func (h *CapabilityHandler) List(c *gin.Context) {
	limit := boundLimit(queryInt(c, "limit", defaultCapabilityLimit), defaultCapabilityLimit, maxCapabilityLimit)
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	var typeFilter capability.Type
	if raw := c.Query("type"); raw != "" {
		t, ok := capability.ParseType(raw)
		if !ok {
			respondError(c, errors.InvalidParam("unknown capability type: "+raw))
			return
		}
		typeFilter = t
	}

	ctx := c.Request.Context()
	caps, err := h.capabilities.List(ctx, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if typeFilter != "" {
		filtered := caps[:0]
		for _, cp := range caps {
			if cp.Type == typeFilter {
				filtered = append(filtered, cp)
			}
		}
		caps = filtered
	}

	total, err := h.capabilities.Count(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, caps, total, limit, offset)
}

// Get handles GET /capabilities/:id.
func (h *CapabilityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cp, err := h.capabilities.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cp)
}

// MatchedResource pairs a resource with its match score against the
// capability, strongest match first.
type MatchedResource struct {
	Resource   *resource.Resource `json:"resource"`
	MatchScore float64            `json:"match_score"`
}

// Resources handles GET /capabilities/:id/resources.
func (h *CapabilityHandler) Resources(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.capabilities.GetByID(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	links, err := h.mappings.ListByCapability(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]MatchedResource, 0, len(links))
	for _, link := range links {
		res, err := h.resources.GetByID(ctx, link.ResourceID)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			respondError(c, err)
			return
		}
		out = append(out, MatchedResource{Resource: res, MatchScore: link.MatchScore})
	}
	respond(c, http.StatusOK, out)
}
