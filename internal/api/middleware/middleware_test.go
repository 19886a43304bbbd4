package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/editors", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/ws", func(c *gin.Context) { c.String(http.StatusOK, "ws") })
	return r
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSAllowAll(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig()))
	w := get(r, "/editors", map[string]string{"Origin": "http://client.local"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSListedOrigins(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://app.local"}
	r := newRouter(CORS(cfg))

	w := get(r, "/editors", map[string]string{"Origin": "http://app.local"})
	assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = get(r, "/editors", map[string]string{"Origin": "http://other.local"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerSecond = 1
	cfg.Burst = 2
	r := newRouter(RateLimit(cfg))

	assert.Equal(t, http.StatusOK, get(r, "/editors", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/editors", nil).Code)

	w := get(r, "/editors", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")

	// Exempt paths never consume tokens.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ws", nil).Code)
	}
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	l := &limiters{
		cfg:     RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute},
		clients: make(map[string]*client),
	}
	start := time.Now()
	l.swept = start

	require.True(t, l.allow("a", start))
	require.True(t, l.allow("b", start))
	assert.False(t, l.allow("a", start))
	assert.Equal(t, 2, l.size())

	later := start.Add(2 * time.Minute)
	assert.True(t, l.allow("a", later))
	assert.Equal(t, 1, l.size())
}
