package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/analytics"
	"checkoutupsell/api/logger"
	"checkoutupsell/api/middleware"
	"checkoutupsell/api/utils"
)

// adminReportWindow is the default range of the admin dashboard when no dates are given.
const adminReportWindow = 30 * 24 * time.Hour

type AnalyticsHandlers struct {
	Service *analytics.Service
}

func NewAnalyticsHandlers(s *analytics.Service) *AnalyticsHandlers {
	return &AnalyticsHandlers{Service: s}
}

// TrackEvent records a click or conversion reported by the checkout extension.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	var event analytics.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		logger.WarnCtx(c.Request.Context(), "Error binding incoming analytics JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Service.Record(ctx, event)
	if err != nil {
		if errors.Is(err, analytics.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", event.Shop))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	resp := gin.H{"success": true, "id": res.ID}
	if res.Updated {
		resp["updated"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// GetAnalytics reports on the shop named by the query string.
func (h *AnalyticsHandlers) GetAnalytics(c *gin.Context) {
	if c.Query("shop") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shop parameter is required"})
		return
	}
	h.summarize(c, c.Query("shop"), false)
}

// GetShopAnalytics reports on the authenticated shop. Missing dates default to a 30-day window.
func (h *AnalyticsHandlers) GetShopAnalytics(c *gin.Context) {
	h.summarize(c, middleware.Shop(c), true)
}

func (h *AnalyticsHandlers) summarize(c *gin.Context, shop string, defaultWindow bool) {
	start, err := utils.ParseDateParam(c.Query("startDate"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'startDate': " + err.Error()})
		return
	}
	end, err := utils.ParseDateParam(c.Query("endDate"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'endDate': " + err.Error()})
		return
	}
	if defaultWindow && (start == nil || end == nil) {
		// a missing bound is filled from the 30-day window ending at end, or now
		if end == nil {
			now := time.Now().UTC()
			end = &now
		}
		if start == nil {
			from := end.Add(-adminReportWindow)
			start = &from
		}
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	report, err := h.Service.Summarize(ctx, analytics.Filter{
		Shop:      shop,
		Start:     start,
		End:       end,
		Placement: c.Query("placement"),
		Limit:     limit,
	})
	if err != nil {
		if errors.Is(err, analytics.ErrShopRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Shop parameter is required"})
			return
		}
		logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", shop))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analytics"})
		return
	}

	c.JSON(http.StatusOK, report)
}
