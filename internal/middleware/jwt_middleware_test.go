package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crateside/shop_api/internal/utils"
)

func newAdminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	admin := router.Group("/v1/admin")
	admin.Use(NewJWTMiddleware().Handle())
	admin.GET("/reports", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"subject": c.GetString("admin_subject"),
			"role":    c.GetString("admin_role"),
		})
	})
	return router
}

func mintToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	claims := utils.AdminClaims{
		Role: "operator",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@crateside.shop",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func getAdmin(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/reports", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTMiddlewareAcceptsValidToken(t *testing.T) {
	utils.InitJWT("admin-secret")
	router := newAdminRouter()

	w := getAdmin(router, "Bearer "+mintToken(t, "admin-secret", time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops@crateside.shop")
	assert.Contains(t, w.Body.String(), "operator")
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	utils.InitJWT("admin-secret")
	router := newAdminRouter()

	w := getAdmin(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestJWTMiddlewareRejectsNonBearerHeader(t *testing.T) {
	utils.InitJWT("admin-secret")
	router := newAdminRouter()

	w := getAdmin(router, "Basic b3BzOnBhc3M=")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsWrongSecret(t *testing.T) {
	utils.InitJWT("admin-secret")
	router := newAdminRouter()

	w := getAdmin(router, "Bearer "+mintToken(t, "some-other-secret", time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	utils.InitJWT("admin-secret")
	router := newAdminRouter()

	w := getAdmin(router, "Bearer "+mintToken(t, "admin-secret", -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}
