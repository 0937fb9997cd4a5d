package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"babycare-backend/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// AuthMiddleware verifies access tokens and stores the claims on the request
// context.
type AuthMiddleware struct {
	auth   service.AuthService
	logger *zap.Logger
}

// NewAuthMiddleware creates the middleware.
func NewAuthMiddleware(auth service.AuthService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		auth:   auth,
		logger: logger,
	}
}

// Require wraps a handler so it only runs for authenticated requests.
func (m *AuthMiddleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractToken(r)
		if tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, Fail("missing token"))
			return
		}

		claims, err := m.auth.VerifyToken(tokenString)
		if err != nil {
			if errors.Is(err, service.ErrTokenExpired) {
				writeJSON(w, http.StatusUnauthorized, TokenExpired("token expired"))
				return
			}
			writeJSON(w, http.StatusUnauthorized, Fail("invalid token"))
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// extractToken reads the Authorization header, falling back to the token
// query parameter for clients that cannot set headers (websocket browsers).
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// claimsFromContext returns the verified claims stored by Require.
func claimsFromContext(ctx context.Context) (*service.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*service.TokenClaims)
	return claims, ok
}
