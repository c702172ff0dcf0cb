package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, 2) // 2 requests per second, burst of 2

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/api/v1/tasks", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// First two requests should succeed
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Third request should be rate limited
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterKeysByClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, 1)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ClientContextKey, c.GetHeader("X-Test-Client"))
	})
	router.Use(RateLimit(rl))
	router.GET("/api/v1/tasks", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(client string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
		req.Header.Set("X-Test-Client", client)
		router.ServeHTTP(w, req)
		return w.Code
	}

	// Exhausting one client's budget leaves another untouched.
	assert.Equal(t, http.StatusOK, send("client-a"))
	assert.Equal(t, http.StatusTooManyRequests, send("client-a"))
	assert.Equal(t, http.StatusOK, send("client-b"))
}
