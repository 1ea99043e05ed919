package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/internal/service"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDPropagates(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, generated)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecoveryReturns500(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(0.001, 1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	from := func(addr string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		return req
	}
	assert.Equal(t, http.StatusOK, serve(r, from("10.0.0.1:1000")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, from("10.0.0.1:1001")).Code)
	assert.Equal(t, http.StatusOK, serve(r, from("10.0.0.2:1000")).Code)
}

func TestIPLimiterSweepsIdleVisitors(t *testing.T) {
	l := newIPLimiter(rate.Limit(1), 1, time.Millisecond)
	assert.True(t, l.allow("a"))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.allow("b"))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "a")
	assert.Contains(t, l.visitors, "b")
}

func TestAdminAuth(t *testing.T) {
	hash, err := service.HashPassword("pw")
	require.NoError(t, err)
	auth := service.NewAuthService(config.JWTConfig{Secret: "k"}, config.AdminConfig{Username: "root", PasswordHash: hash})
	tok, err := auth.Login(context.Background(), "root", "pw")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", AdminAuth(auth), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextAdmin)) })

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + tok.AccessToken, http.StatusUnauthorized},
		{"garbage", "Bearer xyz", http.StatusUnauthorized},
		{"valid", "Bearer " + tok.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := serve(r, req)
			assert.Equal(t, tc.code, w.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, "root", w.Body.String())
			}
		})
	}
}
