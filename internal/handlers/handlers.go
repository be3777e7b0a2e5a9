package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/middleware"
	"github.com/yukikurage/field-report-api/internal/services"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// requireActor returns the actor set by middleware.LoadActor or writes a 401.
func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return actor, ok
}

// parseIDParam parses a numeric path parameter or writes a 400.
func parseIDParam(c *gin.Context, name, label string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+label)
		return 0, false
	}
	return id, true
}

// parseOptionalUint parses an optional numeric query parameter.
func parseOptionalUint(value string) (*uint64, error) {
	if value == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDateField parses a YYYY-MM-DD request field in the server location.
func parseDateField(c *gin.Context, field string, value string) (*time.Time, bool) {
	date, err := utils.ParseDate(value, time.Local)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+field+", expected YYYY-MM-DD")
		return nil, false
	}
	return date, true
}
