package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlongevity/longmap/internal/infrastructure/database/postgres"
	"github.com/openlongevity/longmap/internal/infrastructure/database/redis"
	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
)

const readinessTimeout = 5 * time.Second

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	pool   *pgxpool.Pool
	cache  redis.Cache
	logger logging.Logger
}

func NewHealthHandler(pool *pgxpool.Pool, cache redis.Cache, logger logging.Logger) *HealthHandler {
	return &HealthHandler{pool: pool, cache: cache, logger: logger.Named("health_handler")}
}

// Liveness handles GET /healthz. It answers as long as the process serves
// requests; dependencies are the readiness probe's concern.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. A failing dependency flips the probe so
// the load balancer drains traffic instead of serving errors.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if h.pool != nil {
		if err := postgres.HealthCheck(ctx, h.pool, h.logger); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": healthy, "checks": checks})
}
