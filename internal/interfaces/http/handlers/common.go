// Package handlers implements the HTTP endpoints over the application
// services. Handlers parse and bound request parameters, call one service or
// repository method, and serialize the uniform response envelope; no
// business logic lives here.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/pkg/errors"
	"github.com/openlongevity/longmap/pkg/types/common"
)

// queryInt parses an integer query parameter, falling back to def for
// missing or malformed values.
func queryInt(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryFloat parses a float query parameter, falling back to def.
func queryFloat(c *gin.Context, name string, def float64) float64 {
	v := c.Query(name)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// boundLimit applies the default for non-positive limits and caps the rest.
func boundLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// pathID parses a UUID path parameter.
func pathID(c *gin.Context, name string) (common.ID, bool) {
	id, err := common.ParseID(c.Param(name))
	if err != nil {
		respondError(c, errors.InvalidParam("malformed id: "+c.Param(name)))
		return "", false
	}
	return id, true
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, common.APIResponse[interface{}]{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func respondList(c *gin.Context, data interface{}, total int64, limit, offset int) {
	c.JSON(http.StatusOK, common.APIResponse[interface{}]{
		Success: true,
		Data:    data,
		Pagination: &common.Pagination{
			Page:     offset/maxInt(limit, 1) + 1,
			PageSize: limit,
			Total:    total,
		},
		Timestamp: time.Now().UTC(),
	})
}

// respondError maps an application error onto its HTTP status via the error
// code table. Internal failure details never leak to clients.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, common.APIResponse[interface{}]{
		Success: false,
		Error: &common.ErrorDetail{
			Code:    code.String(),
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
