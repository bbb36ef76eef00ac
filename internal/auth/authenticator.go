package auth

import (
	"context"
	"time"
)

// IdentityProvider creates identities at the external auth service.
// This abstraction allows swapping providers (hosted GoTrue, a test fake, etc.)
// without changing the service layer code.
type IdentityProvider interface {
	// SignInAnonymously creates a new anonymous user and returns its session.
	SignInAnonymously(ctx context.Context) (*Session, error)
}

// Session is what the provider returns after a successful sign-in.
type Session struct {
	// UserID is the provider's user id, stored on the Member as auth_user_id.
	UserID string `json:"user_id"`

	// AccessToken is the bearer token clients send back on later requests.
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}
