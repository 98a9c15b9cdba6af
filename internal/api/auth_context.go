package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/diary-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// principalKey is the context key for the authenticated caller.
const principalKey ctxKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    string
	Username  string
	SessionID string
}

// GetPrincipal returns the authenticated caller from context.
// Returns 401 error if the request is not authenticated.
func GetPrincipal(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, huma.Error401Unauthorized("Authentication required")
	}
	return p, nil
}

// setPrincipal stores the caller in context.
func setPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores the caller in context.
// If no token is present or invalid, continues without a caller.
// Handlers use GetPrincipal to check authentication.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, claims, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				// Invalid token - continue without caller (handler will reject if auth required)
				next.ServeHTTP(w, r)
				return
			}

			ctx := setPrincipal(r.Context(), Principal{
				UserID:    user.ID,
				Username:  user.Username,
				SessionID: claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
