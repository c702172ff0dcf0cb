// Package middleware holds the gin middleware for the task API:
// request logging, prometheus instrumentation, bearer-token auth and
// per-client rate limiting.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ClientContextKey is where the authenticated client name is stored
	// on the request context.
	ClientContextKey = "client"
)

var jwtSecret string

// Claims are the token claims issued to API clients. Subject names the
// client (an operator or an automation account); there is no user
// database behind it.
type Claims struct {
	jwt.RegisteredClaims
}

// SetJWTSecret configures the signing secret. An empty secret leaves
// the API open, which is the default for single-operator deployments.
func SetJWTSecret(secret string) {
	jwtSecret = secret
}

// AuthEnabled reports whether bearer auth is configured.
func AuthEnabled() bool {
	return jwtSecret != ""
}

// JWTAuth validates HS256 bearer tokens on mutating routes. With no
// secret configured it passes every request through.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSecret == "" {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(jwtSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set(ClientContextKey, claims.Subject)
		c.Next()
	}
}

// GenerateToken issues a token for a named client. Used by the ops CLI
// and by tests.
func GenerateToken(client string, expiresIn time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   client,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// GetClient retrieves the authenticated client name from the context.
func GetClient(c *gin.Context) (string, bool) {
	client, exists := c.Get(ClientContextKey)
	if !exists {
		return "", false
	}

	name, ok := client.(string)
	return name, ok
}
