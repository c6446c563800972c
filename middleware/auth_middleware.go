package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/logger"
	"checkoutupsell/api/utils"
)

// ShopKey is the gin context key holding the authenticated shop domain.
const ShopKey = "shop"

// SessionRequired authenticates embedded admin requests with a Shopify session token.
func SessionRequired(apiKey, apiSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("Authorization")
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}
		tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))

		shop, err := utils.ValidateSessionToken(tokenString, apiKey, apiSecret)
		if err != nil {
			logger.WarnCtx(c.Request.Context(), "SessionRequired: invalid session token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(ShopKey, shop)
		c.Next()
	}
}

// Shop returns the shop set by SessionRequired.
func Shop(c *gin.Context) string {
	return c.GetString(ShopKey)
}
