package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Ensure GoTrueClient implements IdentityProvider
var _ IdentityProvider = (*GoTrueClient)(nil)

// GoTrueClient talks to a hosted GoTrue (Supabase Auth) server.
type GoTrueClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// GoTrueConfig holds client configuration.
type GoTrueConfig struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

// NewGoTrueClient creates a new identity provider client.
func NewGoTrueClient(cfg GoTrueConfig) (*GoTrueClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoTrueClient{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

// gotrueSession is the token response of /auth/v1/signup.
type gotrueSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// SignInAnonymously creates an anonymous user. Signing up with an empty body is
// how GoTrue issues anonymous sessions.
func (c *GoTrueClient) SignInAnonymously(ctx context.Context) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/signup", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		return nil, fmt.Errorf("failed to build signup request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read identity provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		slog.Error("anonymous sign-in rejected", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var raw gotrueSession
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode identity provider response: %w", err)
	}
	if raw.User.ID == "" || raw.AccessToken == "" {
		return nil, fmt.Errorf("identity provider response missing user or token")
	}

	expiresAt := time.Unix(raw.ExpiresAt, 0)
	if raw.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(raw.ExpiresIn) * time.Second)
	}

	return &Session{
		UserID:       raw.User.ID,
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}
