package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/logger"
)

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandlers struct {
	DB Pinger
}

func NewHealthHandlers(db Pinger) *HealthHandlers {
	return &HealthHandlers{DB: db}
}

func (h *HealthHandlers) Healthz(c *gin.Context) {
	if h.DB == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logger.WarnCtx(c.Request.Context(), "Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
