package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyUsername is the key for username in gin context
	ContextKeyUsername = "username"
)

// AuthMiddleware validates access tokens and sets user info in context
func AuthMiddleware(tokens *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := BearerToken(c)
		if !ok {
			AbortUnauthorized(c, HeaderErrorMessage(c))
			return
		}

		claims, err := tokens.ValidateToken(tokenString, TokenTypeAccess)
		if err != nil {
			AbortUnauthorized(c, TokenErrorMessage(err))
			return
		}

		SetUser(c, claims.UserID, claims.Username)
		c.Next()
	}
}

// SetUser stores the authenticated identity in the gin context.
func SetUser(c *gin.Context, userID uint, username string) {
	c.Set(ContextKeyUserID, userID)
	c.Set(ContextKeyUsername, username)
}

// GetUserID returns the user ID from the gin context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Expect "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// HeaderErrorMessage describes why the Authorization header was rejected.
func HeaderErrorMessage(c *gin.Context) string {
	if c.GetHeader("Authorization") == "" {
		return "Authorization header required"
	}
	return "Invalid authorization header format"
}

// TokenErrorMessage maps a token validation error to the response text.
func TokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, ErrWrongTokenType):
		return "Wrong token type"
	default:
		return "Invalid token"
	}
}

// AbortUnauthorized stops the chain with a 401.
func AbortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
