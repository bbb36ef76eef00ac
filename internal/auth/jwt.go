package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// TokenVerifier validates access tokens issued by the identity provider.
// Tokens are never issued here.
type TokenVerifier struct {
	secretKey []byte
	audience  string
}

// Claims represents the provider's JWT claims. Subject is the auth user id.
type Claims struct {
	Role        string `json:"role"`
	IsAnonymous bool   `json:"is_anonymous"`
	jwt.RegisteredClaims
}

// NewTokenVerifier creates a verifier for HS256 tokens signed with secretKey.
// When audience is non-empty, tokens must carry it in their aud claim.
func NewTokenVerifier(secretKey, audience string) *TokenVerifier {
	return &TokenVerifier{
		secretKey: []byte(secretKey),
		audience:  audience,
	}
}

// Verify parses and validates a JWT token, returning the claims if valid.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secretKey, nil
		},
		opts...,
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
