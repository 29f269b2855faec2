package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateAccessToken(OperatorClaims{Operator: "ops", ReadOnly: true})
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Operator)
	assert.True(t, claims.ReadOnly)

	_, err = NewJWTManager("other", time.Hour).ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.GenerateAccessToken(OperatorClaims{Operator: "ops"})
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.Error(t, err)

	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword("correct horse", hash))
	assert.False(t, VerifyPassword("wrong horse", hash))
}

func newRouter(m *JWTManager, hash string) *gin.Engine {
	r := gin.New()
	NewHandlers(m, hash).RegisterRoutes(r.Group("/api"))
	protected := r.Group("/api", Middleware(m))
	protected.GET("/status", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextKeyOperator)) })
	protected.POST("/stop", RequireWrite(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestLoginAndMiddleware(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	r := newRouter(m, hash)

	body, _ := json.Marshal(LoginRequest{Operator: "alice", Password: "correct horse"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+resp.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejections(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	body, _ := json.Marshal(LoginRequest{Password: "nope nope"})
	w := httptest.NewRecorder()
	newRouter(m, hash).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	newRouter(m, "").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadOnlyTokenCannotWrite(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateAccessToken(OperatorClaims{Operator: "viewer", ReadOnly: true})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/stop", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newRouter(m, "").ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateAccessToken(OperatorClaims{Operator: "ws"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	newRouter(m, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status?access_token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ws", w.Body.String())
}
