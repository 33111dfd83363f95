package middlewares

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/draftwise/ragbox/internal/server/handlers/api"
)

const (
	bearerPrefix = "Bearer "
	authHeader   = "Authorization"

	groupsClaim = "cognito:groups"
	adminGroup  = "Admin"

	// UserContextKey holds the token subject in the gin context.
	UserContextKey = "user"
)

// AdminOnly validates the bearer token and requires membership of the
// admin group. With an empty secret the gate is disabled entirely,
// which is how local setups run.
func AdminOnly(secret string) gin.HandlerFunc {
	if secret == "" {
		slog.Warn("admin middleware disabled")
		return func(ctx *gin.Context) {
			ctx.Next()
		}
	}

	key := []byte(secret)
	return func(ctx *gin.Context) {
		claims, err := parseToken(ctx.GetHeader(authHeader), key)
		if err != nil {
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAccessDenied, err)
			return
		}

		if !inGroup(claims, adminGroup) {
			api.AbortWithError(ctx, http.StatusForbidden, api.CodeAccessDenied,
				errors.New("admin access required"))
			return
		}

		if sub, _ := claims.GetSubject(); sub != "" {
			ctx.Set(UserContextKey, sub)
		}
		ctx.Next()
	}
}

func parseToken(header string, key []byte) (jwt.MapClaims, error) {
	if header == "" {
		return nil, errors.New("authorization header is missing")
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, errors.New("authorization header format must be Bearer {token}")
	}
	tokenString := strings.TrimPrefix(header, bearerPrefix)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

// inGroup handles both claim encodings seen in the wild: a list of
// groups or a single space-joined string.
func inGroup(claims jwt.MapClaims, group string) bool {
	switch groups := claims[groupsClaim].(type) {
	case string:
		return strings.Contains(groups, group)
	case []any:
		for _, g := range groups {
			if s, ok := g.(string); ok && strings.Contains(s, group) {
				return true
			}
		}
	}
	return false
}
