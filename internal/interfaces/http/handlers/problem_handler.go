package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/application/ingest"
	"github.com/openlongevity/longmap/internal/domain/capability"
	"github.com/openlongevity/longmap/internal/domain/mapping"
	"github.com/openlongevity/longmap/internal/domain/problem"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
	"github.com/openlongevity/longmap/pkg/errors"
)

const (
	defaultProblemLimit = 100
	maxProblemLimit     = 1000
)

// ProblemHandler serves the research-problem endpoints.
type ProblemHandler struct {
	problems     problem.Repository
	capabilities capability.Repository
	mappings     mapping.ProblemCapabilityRepository
	ingest       *ingest.Service
	logger       logging.Logger
}

func NewProblemHandler(
	problems problem.Repository,
	capabilities capability.Repository,
	mappings mapping.ProblemCapabilityRepository,
	ingestSvc *ingest.Service,
	logger logging.Logger,
) *ProblemHandler {
	return &ProblemHandler{
		problems:     problems,
		capabilities: capabilities,
		mappings:     mappings,
		ingest:       ingestSvc,
		logger:       logger.Named("problem_handler"),
	}
}

// List handles GET /problems.
func (h *ProblemHandler) List(c *gin.Context) {
	filter := problem.ListFilter{
		Source: c.Query("source"),
		Limit:  boundLimit(queryInt(c, "limit", defaultProblemLimit), defaultProblemLimit, maxProblemLimit),
		Offset: queryInt(c, "offset", 0),
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if raw := c.Query("category"); raw != "" {
		cat, ok := problem.ParseCategory(raw)
		if !ok {
			respondError(c, errors.InvalidParam("unknown category: "+raw))
			return
		}
		filter.Category = &cat
	}

	problems, err := h.problems.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.problems.Count(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondList(c, problems, total, filter.Limit, filter.Offset)
}

// Get handles GET /problems/:id.
func (h *ProblemHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.problems.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, p)
}

// ProblemCapability is one required capability of a problem, with the
// mapping confidence alongside the capability itself.
type ProblemCapability struct {
	Capability *capability.Capability `json:"capability"`
	Confidence float64                `json:"confidence"`
	IsRequired bool                   `json:"is_required"`
}

// Capabilities handles GET /problems/:id/capabilities.
func (h *ProblemHandler) Capabilities(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.problems.GetByID(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	links, err := h.mappings.ListByProblem(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ProblemCapability, 0, len(links))
	for _, link := range links {
		cap, err := h.capabilities.GetByID(ctx, link.CapabilityID)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			respondError(c, err)
			return
		}
		out = append(out, ProblemCapability{
			Capability: cap,
			Confidence: link.ConfidenceScore,
			IsRequired: link.IsRequired,
		})
	}
	respond(c, http.StatusOK, out)
}

type createProblemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Source      string `json:"source"`
	SourceID    string `json:"source_id"`
	SourceURL   string `json:"source_url"`
}

// Create handles POST /problems. The document runs through the same
// classification, extraction, and matching pipeline as fetched records.
func (h *ProblemHandler) Create(c *gin.Context) {
	var req createProblemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Validation("invalid request body: "+err.Error()))
		return
	}

	result, err := h.ingest.CreateProblem(c.Request.Context(), ingest.CreateProblemInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Source:      req.Source,
		SourceID:    req.SourceID,
		SourceURL:   req.SourceURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.Info("problem created",
		logging.String("problem_id", result.ProblemID),
		logging.String("category", result.Category),
		logging.Int("capabilities", result.Capabilities))
	respond(c, http.StatusCreated, result)
}
