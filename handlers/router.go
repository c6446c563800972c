package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkoutupsell/api/middleware"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Upsells   *UpsellHandlers
	Analytics *AnalyticsHandlers
	Admin     *AdminHandlers
	Webhooks  *WebhookHandlers
	Health    *HealthHandlers

	ShopifyAPIKey    string
	ShopifyAPISecret string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger(), middleware.Metrics())

	r.GET("/healthz", cfg.Health.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	preflight := func(c *gin.Context) { c.Status(http.StatusOK) }

	// Storefront and checkout extension endpoints
	api := r.Group("/api")
	api.Use(middleware.PublicCORS())
	{
		api.GET("/upsells", cfg.Upsells.GetUpsell)
		api.OPTIONS("/upsells", preflight)

		api.POST("/analytics", cfg.Analytics.TrackEvent)
		api.GET("/analytics", cfg.Analytics.GetAnalytics)
		api.OPTIONS("/analytics", preflight)
	}

	// Embedded admin, authenticated with Shopify session tokens
	admin := r.Group("/admin/api")
	admin.Use(middleware.SessionRequired(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret))
	{
		admin.GET("/upsells", cfg.Admin.ListBlocks)
		admin.POST("/upsells", cfg.Admin.CreateBlock)
		admin.GET("/upsells/:id", cfg.Admin.GetBlock)
		admin.PUT("/upsells/:id", cfg.Admin.UpdateBlock)
		admin.DELETE("/upsells/:id", cfg.Admin.DeleteBlock)
		admin.PATCH("/upsells/:id/status", cfg.Admin.SetStatus)
		admin.GET("/analytics", cfg.Analytics.GetShopAnalytics)
	}

	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.ShopifyWebhook(cfg.ShopifyAPISecret))
	{
		webhooks.Match([]string{http.MethodGet, http.MethodPost}, "/app/uninstalled", cfg.Webhooks.AppUninstalled)
		webhooks.Match([]string{http.MethodGet, http.MethodPost}, "/shop/redact", cfg.Webhooks.ShopRedact)
		webhooks.Match([]string{http.MethodGet, http.MethodPost}, "/customers/redact", cfg.Webhooks.CustomersRedact)
		webhooks.Match([]string{http.MethodGet, http.MethodPost}, "/customers/data-request", cfg.Webhooks.CustomersDataRequest)
	}

	return r
}
