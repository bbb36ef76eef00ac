package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmynk/youowe/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// AuthUserIDKey is the context key for the identity provider's user id.
	AuthUserIDKey contextKey = "auth_user_id"
)

// TokenVerifier validates provider-issued access tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// GetAuthUserID extracts the authenticated user id from the context.
// Returns empty string if not found.
func GetAuthUserID(ctx context.Context) string {
	id, _ := ctx.Value(AuthUserIDKey).(string)
	return id
}

// WithAuthUserID returns a copy of ctx carrying the authenticated user id.
func WithAuthUserID(ctx context.Context, authUserID string) context.Context {
	return context.WithValue(ctx, AuthUserIDKey, authUserID)
}

// TokenFromRequest returns the access token from, in order, the Authorization
// header, the session cookie, or the access_token query parameter. Browsers
// cannot set headers on websocket handshakes, hence the query parameter.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			return cookie.Value
		}
	}

	return r.URL.Query().Get("access_token")
}

// OptionalAuth validates a token if present, but allows requests without
// authentication. Handlers that need a requester check GetAuthUserID.
func OptionalAuth(verifier TokenVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r, cookieName)
			if token != "" {
				// Validate token (ignore errors - optional auth)
				claims, err := verifier.Verify(token)
				if err == nil {
					r = r.WithContext(WithAuthUserID(r.Context(), claims.Subject))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that OptionalAuth did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetAuthUserID(r.Context()) == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"` + auth.ErrMissingToken.Error() + `"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
