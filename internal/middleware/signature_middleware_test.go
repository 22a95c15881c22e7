package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/utils"
)

func newSignedRouter(mw *SignatureMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/webhook/inventory", mw.Handle(), func(c *gin.Context) {
		c.String(http.StatusOK, string(VerifiedBody(c)))
	})
	return router
}

func postSigned(router *gin.Engine, body []byte, signature, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/inventory", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Signature", signature)
	}
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSignatureMiddlewareAcceptsValidSignature(t *testing.T) {
	router := newSignedRouter(NewSignatureMiddleware("primary-secret"))
	body := []byte(`{"type":"inventory.count.updated"}`)

	w := postSigned(router, body, utils.GenerateSignature(body, "primary-secret"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(body), w.Body.String(), "the handler must see the exact bytes that were verified")
}

func TestSignatureMiddlewareAcceptsFallbackSecret(t *testing.T) {
	// Rotation window: deliveries still signed with the old secret verify
	// against the fallback.
	router := newSignedRouter(NewSignatureMiddleware("new-secret", "old-secret"))
	body := []byte(`{"type":"order.created"}`)

	w := postSigned(router, body, utils.GenerateSignature(body, "old-secret"), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignatureMiddlewareRejectsMissingHeader(t *testing.T) {
	router := newSignedRouter(NewSignatureMiddleware("primary-secret"))

	w := postSigned(router, []byte(`{}`), "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_SIGNATURE")
}

func TestSignatureMiddlewareRejectsWrongSecret(t *testing.T) {
	router := newSignedRouter(NewSignatureMiddleware("primary-secret"))
	body := []byte(`{"type":"catalog.item.updated"}`)

	w := postSigned(router, body, utils.GenerateSignature(body, "attacker-secret"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SIGNATURE")
}

func TestSignatureMiddlewareRejectsTamperedBody(t *testing.T) {
	router := newSignedRouter(NewSignatureMiddleware("primary-secret"))
	signed := []byte(`{"stockLevel":5}`)
	tampered := []byte(`{"stockLevel":500}`)

	w := postSigned(router, tampered, utils.GenerateSignature(signed, "primary-secret"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSignatureMiddlewareThrottlesRepeatedFailures(t *testing.T) {
	router := newSignedRouter(NewSignatureMiddleware("primary-secret"))
	body := []byte(`{}`)
	sig := utils.GenerateSignature(body, "wrong-secret")

	for i := 0; i < 5; i++ {
		w := postSigned(router, body, sig, "203.0.113.7:40000")
		require.Equal(t, http.StatusForbidden, w.Code, "failure %d is still a plain rejection", i+1)
	}

	w := postSigned(router, body, sig, "203.0.113.7:40000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "TOO_MANY_REQUESTS")

	// The cooldown is per source address; another sender is unaffected.
	other := postSigned(router, body, sig, "198.51.100.9:40000")
	assert.Equal(t, http.StatusForbidden, other.Code)
}
