package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shipdash-backend/internal/domain/shipments"
	"github.com/yungbote/shipdash-backend/internal/http/response"
	"github.com/yungbote/shipdash-backend/internal/pkg/apierr"
	"github.com/yungbote/shipdash-backend/internal/services"
)

type ShipmentHandler struct {
	query services.ShipmentQueryService
}

func NewShipmentHandler(query services.ShipmentQueryService) *ShipmentHandler {
	return &ShipmentHandler{query: query}
}

// GET /api/shipments
func (h *ShipmentHandler) ListShipments(c *gin.Context) {
	severity, ok := severityParam(c)
	if !ok {
		return
	}
	page, err := h.query.List(c.Request.Context(), services.ShipmentListParams{
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", defaultShipmentLimit),
		Search:   c.Query("search"),
		Severity: severity,
	})
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, page)
}

// GET /api/shipments/stats
func (h *ShipmentHandler) ShipmentStats(c *gin.Context) {
	severity, ok := severityParam(c)
	if !ok {
		return
	}
	stats, err := h.query.Stats(c.Request.Context(), c.Query("search"), severity)
	if err != nil {
		response.RespondFailure(c, err)
		return
	}
	response.RespondOK(c, stats)
}

func severityParam(c *gin.Context) (shipments.Severity, bool) {
	sev, ok := shipments.ParseSeverity(c.Query("severity"))
	if !ok {
		response.RespondError(c, http.StatusBadRequest,
			apierr.BadRequest("invalid_severity", "severity must be one of all, low, medium, high"))
		return "", false
	}
	return sev, true
}
