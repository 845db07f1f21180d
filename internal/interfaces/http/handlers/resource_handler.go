package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/application/indexer"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/resource"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

const (
	defaultResourceLimit = 100
	maxResourceLimit     = 1000
	defaultSimilarLimit  = 10
	maxSimilarLimit      = 50
)

// SimilarFinder answers vector-similarity queries over the resource index.
// Satisfied by *indexer.Service; nil when embeddings are disabled.
type SimilarFinder interface {
	Similar(ctx context.Context, id common.ID, topK int) ([]indexer.SimilarResource, error)
}

// ResourceHandler serves the resource registry endpoints.
type ResourceHandler struct {
	resources resource.Repository
	mappings  mapping.CapabilityResourceRepository
	similar   SimilarFinder
	logger    logging.Logger
}

func NewResourceHandler(
	resources resource.Repository,
	mappings mapping.CapabilityResourceRepository,
	similar SimilarFinder,
	logger logging.Logger,
) *ResourceHandler {
	return &ResourceHandler{
		resources: resources,
		mappings:  mappings,
		similar:   similar,
		logger:    logger.Named("resource_handler"),
	}
}

// List handles GET /resources.
func (h *ResourceHandler) List(c *gin.Context) {
	filter := resource.ListFilter{
		ActiveOnly: c.Query("active") == "true",
		Limit:      boundLimit(queryInt(c, "limit", defaultResourceLimit), defaultResourceLimit, maxResourceLimit),
		Offset:     queryInt(c, "offset", 0),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if raw := c.Query("type"); raw != "" {
		t, ok := resource.ParseType(raw)
		if !ok {
			respondError(c, errors.InvalidParam("unknown resource type: "+raw))
			return
		}
		filter.Types = []resource.Type{t}
	}

	ctx := c.Request.Context()
	resources, err := h.resources.List(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.resources.Count(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, resources, total, filter.Limit, filter.Offset)
}

// Get handles GET /resources/:id.
func (h *ResourceHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.resources.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, res)
}

// Similar handles GET /resources/:id/similar. It answers from the vector
// index; without a configured embedding provider the endpoint reports
// unavailable rather than degrading to lexical similarity.
func (h *ResourceHandler) Similar(c *gin.Context) {
	if h.similar == nil {
		respondError(c, errors.Unavailable("similar-resource search requires an embedding provider"))
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	topK := boundLimit(queryInt(c, "limit", defaultSimilarLimit), defaultSimilarLimit, maxSimilarLimit)

	similar, err := h.similar.Similar(c.Request.Context(), id, topK)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, similar)
}

type createResourceRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Type         string  `json:"type"`
	Organization string  `json:"organization"`
	Location     string  `json:"location"`
	URL          string  `json:"url"`
	Cost         float64 `json:"cost"`
	Availability string  `json:"availability"`
}

// Create handles POST /resources.
func (h *ResourceHandler) Create(c *gin.Context) {
	var req createResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("invalid request body: "+err.Error()))
		return
	}

	typ, ok := resource.ParseType(req.Type)
	if !ok {
		respondError(c, errors.InvalidParam("unknown resource type: "+req.Type))
		return
	}
	res, err := resource.New(req.Name, req.Description, typ)
	if err != nil {
		respondError(c, err)
		return
	}
	res.Organization = req.Organization
	res.Location = req.Location
	res.URL = req.URL
	res.Cost = req.Cost
	res.Availability = req.Availability

	if err := h.resources.Create(c.Request.Context(), res); err != nil {
		respondError(c, err)
		return
	}
	h.logger.Info("resource registered",
		logging.String("resource_id", res.ID.String()),
		logging.String("type", string(res.Type)))
	respond(c, http.StatusCreated, res)
}

// Deactivate handles DELETE /resources/:id. Resources are never hard
// deleted; a retired resource keeps its history but stops matching, and its
// capability links are dropped so gap scoring reflects the loss.
func (h *ResourceHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	res, err := h.resources.GetByID(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.IsActive {
		res.Deactivate()
		if err := h.resources.Update(ctx, res); err != nil {
			respondError(c, err)
			return
		}
		if err := h.mappings.DeleteByResource(ctx, id); err != nil {
			respondError(c, err)
			return
		}
		h.logger.Info("resource deactivated", logging.String("resource_id", id.String()))
	}
	respond(c, http.StatusOK, res)
}
