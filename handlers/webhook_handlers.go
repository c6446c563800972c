package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/metrics"
	"checkoutupsell/api/middleware"
)

// ShopDataDeleter removes everything a store holds for one shop.
type ShopDataDeleter interface {
	DeleteAllForShop(ctx context.Context, shop string) (int64, error)
}

type WebhookHandlers struct {
	Blocks    ShopDataDeleter
	Analytics ShopDataDeleter
}

func NewWebhookHandlers(blocks, events ShopDataDeleter) *WebhookHandlers {
	return &WebhookHandlers{Blocks: blocks, Analytics: events}
}

type webhookPayload struct {
	ShopID     json.Number `json:"shop_id"`
	ShopDomain string      `json:"shop_domain"`
	Customer   struct {
		ID json.Number `json:"id"`
	} `json:"customer"`
}

func (h *WebhookHandlers) AppUninstalled(c *gin.Context) {
	shop := c.GetHeader(middleware.HeaderShopDomain)
	metrics.Default().WebhooksReceived.WithLabelValues("app/uninstalled").Inc()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if shop != "" {
		n, err := h.Blocks.DeleteAllForShop(ctx, shop)
		if err != nil {
			logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", shop))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		logger.InfoCtx(c.Request.Context(), "Cleaned up upsell blocks for uninstalled shop",
			zap.String("shop", shop), zap.Int64("deleted", n))
	}
	c.Status(http.StatusOK)
}

func (h *WebhookHandlers) ShopRedact(c *gin.Context) {
	metrics.Default().WebhooksReceived.WithLabelValues("shop/redact").Inc()
	payload := h.payload(c)

	shop := strings.TrimSpace(payload.ShopDomain)
	if shop == "" {
		shop = c.GetHeader(middleware.HeaderShopDomain)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if shop != "" {
		blocks, err := h.Blocks.DeleteAllForShop(ctx, shop)
		if err != nil {
			logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", shop))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		events, err := h.Analytics.DeleteAllForShop(ctx, shop)
		if err != nil {
			logger.ErrorCtx(c.Request.Context(), err, zap.String("shop", shop))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		logger.InfoCtx(c.Request.Context(), "Processed shop redaction",
			zap.String("shop", shop),
			zap.Int64("blocks_deleted", blocks),
			zap.Int64("events_deleted", events))
	}

	c.JSON(http.StatusOK, gin.H{
		"received":    true,
		"processed":   shop != "",
		"shopDomain":  shop,
		"processedAt": time.Now().UTC().Format(time.RFC3339),
	})
}

// CustomersRedact acknowledges the request. Analytics rows only carry a client-side hash that
// cannot be matched to a Shopify customer.
func (h *WebhookHandlers) CustomersRedact(c *gin.Context) {
	metrics.Default().WebhooksReceived.WithLabelValues("customers/redact").Inc()
	payload := h.payload(c)
	logger.InfoCtx(c.Request.Context(), "Customer redaction request received",
		zap.String("shop", payload.ShopDomain),
		zap.String("customer_id", payload.Customer.ID.String()))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandlers) CustomersDataRequest(c *gin.Context) {
	metrics.Default().WebhooksReceived.WithLabelValues("customers/data-request").Inc()
	payload := h.payload(c)
	logger.InfoCtx(c.Request.Context(), "Customer data request received",
		zap.String("shop", payload.ShopDomain),
		zap.String("customer_id", payload.Customer.ID.String()))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandlers) payload(c *gin.Context) webhookPayload {
	var p webhookPayload
	body, ok := c.Get(middleware.WebhookBodyKey)
	if !ok {
		return p
	}
	raw, _ := body.([]byte)
	if err := json.Unmarshal(raw, &p); err != nil {
		logger.WarnCtx(c.Request.Context(), "Could not decode webhook payload",
			zap.String("topic", c.GetHeader(middleware.HeaderTopic)), zap.Error(err))
	}
	return p
}
