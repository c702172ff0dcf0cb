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

func TestGenerateToken(t *testing.T) {
	SetJWTSecret("test-secret")
	defer SetJWTSecret("")

	token, err := GenerateToken("batch-uploader", 1*time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestJWTAuthRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")
	defer SetJWTSecret("")

	tests := []struct {
		name  string
		token string
	}{
		{name: "MissingHeader", token: ""},
		{name: "NotBearer", token: "InvalidToken"},
		{name: "GarbageToken", token: "Bearer not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			req := httptest.NewRequest("POST", "/api/v1/tasks", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", tt.token)
			}
			c.Request = req

			JWTAuth()(c)

			assert.True(t, c.IsAborted())
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestJWTAuthValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")
	defer SetJWTSecret("")

	token, err := GenerateToken("batch-uploader", 1*time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("POST", "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	JWTAuth()(c)

	require.False(t, c.IsAborted())
	client, ok := GetClient(c)
	assert.True(t, ok)
	assert.Equal(t, "batch-uploader", client)
}

func TestJWTAuthExpiredToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("test-secret")
	defer SetJWTSecret("")

	token, err := GenerateToken("batch-uploader", -1*time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	req := httptest.NewRequest("POST", "/api/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	c.Request = req

	JWTAuth()(c)

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthDisabledPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	SetJWTSecret("")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/api/v1/tasks", nil)

	JWTAuth()(c)

	assert.False(t, c.IsAborted())
	assert.False(t, AuthEnabled())
}
