package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.1.1.1"))
	assert.False(t, l.Allow("1.1.1.1"))
	assert.True(t, l.Allow("2.2.2.2"), "limits are per key")

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("1.1.1.1"), "token refilled")
}

func TestIPRateLimiter_ForgetsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(1)
	l.now = func() time.Time { return now }

	l.Allow("1.1.1.1")
	assert.Len(t, l.visitors, 1)

	now = now.Add(limiterIdleTTL + time.Second)
	l.Allow("2.2.2.2")
	assert.Len(t, l.visitors, 1)
	_, ok := l.visitors["1.1.1.1"]
	assert.False(t, ok)
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/posts", NewIPRateLimiter(2).Middleware(), func(ctx *gin.Context) {
		ctx.Status(http.StatusCreated)
	})

	send := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/posts", nil)
		req.RemoteAddr = "198.51.100.4:5000"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
