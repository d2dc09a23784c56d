package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ucu-innovators/hub/internal/middleware"
	"github.com/ucu-innovators/hub/internal/modules/serializer"
	"github.com/ucu-innovators/hub/internal/modules/service"
)

type AnalyticsHandler struct {
	svc service.AnalyticsService
}

func NewAnalyticsHandler(s service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: s}
}

// GetAnalytics godoc
//
//	@Summary		Analytics summary
//	@Description	Project counts by status, faculty, category and year, plus top innovators. Supervisors and admins only.
//	@Tags			analytics
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	serializer.Response{data=analytics.Summary}
//	@Router			/analytics [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	sum, err := h.svc.Summary(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		serializer.Abort(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sum})
}
