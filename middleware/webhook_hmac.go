package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkoutupsell/api/logger"
)

const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
	HeaderTopic      = "X-Shopify-Topic"

	// WebhookBodyKey holds the verified raw request body.
	WebhookBodyKey = "webhook_body"

	maxWebhookBody = 1 << 20
)

// VerifyWebhookHmac reports whether signature is the base64 HMAC-SHA256 of body under secret.
func VerifyWebhookHmac(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// ShopifyWebhook verifies webhook signatures. Reachability checks (GET or an empty POST) are
// answered with 200 OK before any verification.
func ShopifyWebhook(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.String(http.StatusOK, "OK")
			c.Abort()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			c.String(http.StatusOK, "OK")
			c.Abort()
			return
		}

		if !VerifyWebhookHmac(body, c.GetHeader(HeaderHmac), secret) {
			logger.WarnCtx(c.Request.Context(), "Rejected webhook with invalid HMAC",
				zap.String("path", c.Request.URL.Path),
				zap.String("shop", c.GetHeader(HeaderShopDomain)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(WebhookBodyKey, body)
		c.Next()
	}
}
