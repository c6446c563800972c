package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/upsell"
	"checkoutupsell/api/utils"
)

type UpsellHandlers struct {
	Resolver *upsell.Resolver
}

func NewUpsellHandlers(r *upsell.Resolver) *UpsellHandlers {
	return &UpsellHandlers{Resolver: r}
}

// GetUpsell serves the active widget configuration as JSON, or as JSONP when callback is set.
func (h *UpsellHandlers) GetUpsell(c *gin.Context) {
	callback := c.Query("callback")
	if callback != "" && !utils.ValidCallback(callback) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback parameter"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cfg, err := h.Resolver.Resolve(ctx, c.Query("shop"), c.Query("placement"))
	switch {
	case errors.Is(err, upsell.ErrShopRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Shop parameter is required"})
		return
	case errors.Is(err, upsell.ErrPlacementNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only checkout placement is supported"})
		return
	case err != nil:
		logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", c.Query("shop")))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if callback == "" {
		c.JSON(http.StatusOK, cfg)
		return
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	body := make([]byte, 0, len(callback)+len(payload)+2)
	body = append(body, callback...)
	body = append(body, '(')
	body = append(body, payload...)
	body = append(body, ')')
	c.Data(http.StatusOK, "application/javascript", body)
}
