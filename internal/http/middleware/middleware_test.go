package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/crowdfunding-backend/internal/pkg/apperror"
)

type stubTokens struct {
	userID uuid.UUID
	role   string
	err    error
}

func (s stubTokens) ParseAccess(string) (uuid.UUID, string, error) {
	return s.userID, s.role, s.err
}

func serve(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	r := gin.New()
	r.GET("/me", AuthMiddleware(stubTokens{userID: userID, role: "user"}), func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet(ContextUserIDKey).(uuid.UUID).String())
	})
	r.GET("/bad", AuthMiddleware(stubTokens{err: errors.New("expired")}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer x"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	w = serve(r, http.MethodGet, "/bad", map[string]string{"Authorization": "Bearer x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/user", AuthMiddleware(stubTokens{userID: uuid.New(), role: "user"}), RequireRole("admin"), ok)
	r.GET("/admin", AuthMiddleware(stubTokens{userID: uuid.New(), role: "admin"}), RequireRole("admin"), ok)

	bearer := map[string]string{"Authorization": "Bearer x"}
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/user", bearer).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin", bearer).Code)
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(apperror.ErrInsufficientFunds) })
	r.GET("/internal", func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) })

	w := serve(r, http.MethodGet, "/conflict", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, string(apperror.ErrCodeInsufficientFunds), body["code"])

	w = serve(r, http.MethodGet, "/internal", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://ruang.id"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://ruang.id"})
	assert.Equal(t, "https://ruang.id", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "https://evil.example"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodOptions, "/x", map[string]string{"Origin": "https://ruang.id"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/cb", RateLimitMiddleware(nil, 2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cb", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/cb", nil).Code)
	w := serve(r, http.MethodPost, "/cb", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestUUIDValidator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/d/:id", UUIDValidator("id"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/d/nope", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/d/"+uuid.NewString(), nil).Code)
}
