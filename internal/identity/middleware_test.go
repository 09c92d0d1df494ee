package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret)
	require.NoError(t, err)
	return v
}

// newRouter serves /whoami, which echoes the caller or "anonymous".
func newRouter(v *Verifier, cfg MiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(Middleware(v, cfg))
	router.GET("/whoami", func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, claims.Username)
	})
	return router
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestVerifyRoundTrip(t *testing.T) {
	v := newTestVerifier(t)
	token, err := v.Sign("alice", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyRejectsExpired(t *testing.T) {
	v := newTestVerifier(t)
	token, err := v.Sign("alice", -time.Minute)
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	v := newTestVerifier(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	v := newTestVerifier(t)
	claims := jwt.RegisteredClaims{Subject: "alice", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	other, err := NewVerifier("another-secret")
	require.NoError(t, err)
	token, err := other.Sign("alice", time.Hour)
	require.NoError(t, err)

	_, err = newTestVerifier(t).Verify(token)
	require.Error(t, err)
}

func TestNewVerifierNeedsSecret(t *testing.T) {
	_, err := NewVerifier("")
	require.ErrorIs(t, err, ErrNoSecret)
}

func TestMiddlewareMissingToken(t *testing.T) {
	resp := serve(newRouter(newTestVerifier(t), MiddlewareConfig{}), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Bearer", resp.Header().Get("WWW-Authenticate"))
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")

	resp := serve(newRouter(newTestVerifier(t), MiddlewareConfig{}), req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestMiddlewareValidHeader(t *testing.T) {
	v := newTestVerifier(t)
	token, err := v.Sign("alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := serve(newRouter(v, MiddlewareConfig{}), req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice", resp.Body.String())
}

func TestMiddlewareReadsCookie(t *testing.T) {
	v := newTestVerifier(t)
	token, err := v.Sign("bob", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Cookie", cookieName+"=Bearer%20"+token)

	resp := serve(newRouter(v, MiddlewareConfig{}), req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "bob", resp.Body.String())
}

func TestMiddlewareDisabledInjectsLocalUser(t *testing.T) {
	resp := serve(newRouter(nil, MiddlewareConfig{DisableAuth: true}), httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, LocalUser, resp.Body.String())
}

func TestMiddlewareOptional(t *testing.T) {
	router := newRouter(newTestVerifier(t), MiddlewareConfig{Optional: true})

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "anonymous", resp.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(router, req).Code)
}
