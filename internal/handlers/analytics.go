// internal/handlers/analytics.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brandgrid/licensing-backend/internal/services"
	"github.com/brandgrid/licensing-backend/internal/utils"
)

type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
	}
}

// GET /analytics/renewals?start_date=2025-01-01&end_date=2025-12-31
func (h *AnalyticsHandler) GetRenewalAnalytics(c *gin.Context) {
	now := time.Now().UTC()

	start, err := parseDateQuery(c, "start_date", now.AddDate(0, -3, 0))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid start_date, expected YYYY-MM-DD", nil)
		return
	}

	end, err := parseDateQuery(c, "end_date", now)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid end_date, expected YYYY-MM-DD", nil)
		return
	}

	if !start.Before(end) {
		utils.BadRequestResponse(c, "start_date must be before end_date", nil)
		return
	}

	summary, err := h.analyticsService.GetRenewalAnalytics(start, end)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, summary)
}

func parseDateQuery(c *gin.Context, name string, fallback time.Time) (time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return fallback, nil
	}
	return time.Parse("2006-01-02", value)
}
