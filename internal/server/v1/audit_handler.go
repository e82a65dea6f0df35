package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/internal/audit"
	"github.com/nulzo/model-registry/internal/server/validator"
	"github.com/nulzo/model-registry/pkg/api"
)

type AuditHandler struct {
	service audit.Service
}

func NewAuditHandler(service audit.Service) *AuditHandler {
	return &AuditHandler{
		service: service,
	}
}

// ListEvents returns recent audit events, or the history of one registration when
// target is given.
// GET /api/audit?limit=N&target=ID
func (h *AuditHandler) ListEvents(c *gin.Context) {
	var q api.AuditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(api.ValidationError(validator.ParseValidationError(err)))
		return
	}

	if q.Target != "" {
		events, err := h.service.History(c.Request.Context(), q.Target)
		if err != nil {
			_ = c.Error(api.InternalError("Failed to fetch audit history", err))
			return
		}
		c.JSON(http.StatusOK, api.NewList(events))
		return
	}

	events, err := h.service.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to fetch audit events", err))
		return
	}

	c.JSON(http.StatusOK, api.NewList(events))
}
