package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"readcast/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

var errUnauthorized = errors.New("missing or invalid token")

// RequireAuth resolves the bearer token to a user id. Download links are
// opened by the browser directly, so a token query parameter is accepted too.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, err := userFromToken(extractToken(c), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apiError{
				Code:    "RC-API-4010",
				Message: "Authentication required.",
				Hint:    "Sign in again to get a fresh token.",
			}})
			return
		}
		c.Set(userIDKey, uid)
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(), logger.KeyUserID, uid))
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return c.Query("token")
}

func userFromToken(raw string, secret []byte) (string, error) {
	if raw == "" {
		return "", errUnauthorized
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !token.Valid {
		return "", errUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errUnauthorized
	}
	switch v := claims["uid"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", errUnauthorized
}

func userID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
