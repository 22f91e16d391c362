package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterSetBurstAndEviction(t *testing.T) {
	set := newLimiterSet(10)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	set.now = func() time.Time { return clock }

	for i := 0; i < 5; i++ {
		assert.True(t, set.allow("10.0.0.1"), "request %d within burst", i)
	}
	assert.False(t, set.allow("10.0.0.1"))
	assert.True(t, set.allow("10.0.0.2"), "limits are per key")

	clock = clock.Add(6 * time.Second)
	assert.True(t, set.allow("10.0.0.1"), "one token refills every six seconds")

	clock = clock.Add(limiterIdleTTL + time.Second)
	set.allow("10.0.0.3")
	set.mu.Lock()
	_, kept := set.limiters["10.0.0.2"]
	set.mu.Unlock()
	assert.False(t, kept, "idle limiters are evicted")
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.7:4000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)
	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", errorCode(t, w))
}

func TestPostCreationLimitUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/", AuthRequired(stubVerifier{}, testUsers), PostCreationLimit(rdb, 2), func(ctx *gin.Context) {
		ctx.Status(http.StatusCreated)
	})

	do := func(subject string) int {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer ok:"+subject)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, do("alice"))
	assert.Equal(t, http.StatusCreated, do("alice"))
	assert.Equal(t, http.StatusTooManyRequests, do("alice"))
	assert.Equal(t, http.StatusCreated, do("root"), "counters are per user")

	keys := mr.Keys()
	require.Len(t, keys, 2)
	assert.Contains(t, keys[0], "ratelimit:posts:")
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	id := w.Header().Get("X-Request-ID")
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	const incoming = "3f1c2a8e-4b5d-4c6e-9f7a-0b1c2d3e4f50"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", incoming)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, incoming, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Header().Get("X-Request-ID"))
}
