package middleware

import (
	"bytes"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/crateside/shop_api/internal/metrics"
	"github.com/crateside/shop_api/internal/utils"
)

const verifiedBodyKey = "verified_body"

// SignatureMiddleware authenticates webhook deliveries by HMAC signature
// before they reach the ingest handler. Verification runs over the raw body
// bytes exactly as received; the verified body is stashed in the context so
// the handler processes the same bytes that were authenticated.
type SignatureMiddleware struct {
	secrets  []string
	throttle *InvalidSignatureThrottle
}

// NewSignatureMiddleware constructs a SignatureMiddleware. Secrets are tried
// in order, so a primary plus rotation fallbacks can be active at once.
func NewSignatureMiddleware(secrets ...string) *SignatureMiddleware {
	return &SignatureMiddleware{
		secrets:  secrets,
		throttle: NewInvalidSignatureThrottle(),
	}
}

// Handle returns a Gin middleware that enforces the delivery signature.
func (m *SignatureMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Signature header must be present
		signature := c.GetHeader("X-Signature")
		if signature == "" {
			m.handleSignatureError(c, "MISSING_SIGNATURE", "Missing signature header")
			return
		}

		// 2. Read the raw body; it is both the HMAC input and the payload
		body, err := c.GetRawData()
		if err != nil {
			utils.Error(c, 400, "INVALID_BODY", "Unable to read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		// 3. Verify against every active secret
		if !utils.VerifySignatureAny(body, signature, m.secrets...) {
			m.handleSignatureError(c, "INVALID_SIGNATURE", "Signature verification failed")
			return
		}

		// 4. Expose the authenticated bytes to the handler
		c.Set(verifiedBodyKey, body)

		c.Next()
	}
}

func (m *SignatureMiddleware) handleSignatureError(c *gin.Context, code, message string) {
	metrics.SignatureFailuresTotal.Inc()

	// Apply rate limit for repeated signature failures
	ip := c.ClientIP()
	if !m.throttle.Allow(ip) {
		utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many failed signature attempts")
		c.Abort()
		return
	}

	utils.Error(c, 403, code, message)
	c.Abort()
}

// VerifiedBody returns the authenticated raw payload stored by the signature
// middleware, or nil when the middleware did not run.
func VerifiedBody(c *gin.Context) []byte {
	v, ok := c.Get(verifiedBodyKey)
	if !ok {
		return nil
	}
	body, _ := v.([]byte)
	return body
}
