package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkoutupsell/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func sign(body, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookHmac(t *testing.T) {
	body := []byte(`{"shop_domain":"a.myshopify.com"}`)
	assert.True(t, VerifyWebhookHmac(body, sign(string(body), "secret"), "secret"))
	assert.False(t, VerifyWebhookHmac(body, sign(string(body), "other"), "secret"))
	assert.False(t, VerifyWebhookHmac(body, "%%%", "secret"))
	assert.False(t, VerifyWebhookHmac(body, "", "secret"))
	assert.False(t, VerifyWebhookHmac(body, sign(string(body), ""), ""))
}

func webhookRouter() *gin.Engine {
	r := gin.New()
	r.Any("/hook", ShopifyWebhook("secret"), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusAccepted, string(body))
	})
	return r
}

func TestShopifyWebhook(t *testing.T) {
	r := webhookRouter()
	body := `{"shop_domain":"a.myshopify.com"}`

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set(HeaderHmac, sign(body, "secret"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, body, w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set(HeaderHmac, sign(body, "wrong"))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestShopifyWebhookProbes(t *testing.T) {
	r := webhookRouter()

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/hook", nil),
		httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("")),
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", w.Body.String())
	}
}

func TestSessionRequired(t *testing.T) {
	r := gin.New()
	r.GET("/admin", SessionRequired("key", "secret"), func(c *gin.Context) {
		c.String(http.StatusOK, Shop(c))
	})

	token, err := utils.GenerateSessionToken("a.myshopify.com", "key", "secret", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a.myshopify.com", w.Body.String())

	forged, err := utils.GenerateSessionToken("a.myshopify.com", "key", "not-the-secret", time.Minute)
	require.NoError(t, err)
	for _, header := range []string{"", "Bearer " + forged, "Bearer garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
	}
}

func TestPublicCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(PublicCORS())
	r.GET("/api/upsells", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.OPTIONS("/api/upsells", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/upsells", nil)
	req.Header.Set("Origin", "https://extensions.shopifycdn.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/upsells", nil)
	req.Header.Set("Origin", "https://extensions.shopifycdn.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), Metrics())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
