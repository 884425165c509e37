package authsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Session holds a token pair and refreshes it when the server rejects the
// access token. Safe for concurrent use.
type Session struct {
	client *SDKClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// AccessToken returns the current access token.
func (s *Session) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshToken
}

func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	return withRefresh(ctx, s, func(token string) (*MeResponse, error) {
		return s.client.Me(ctx, token)
	})
}

func (s *Session) SecurityEvents(ctx context.Context, limit int) (*SecurityEventsResponse, error) {
	return withRefresh(ctx, s, func(token string) (*SecurityEventsResponse, error) {
		return s.client.SecurityEvents(ctx, token, limit)
	})
}

// Logout revokes the session's refresh token and clears both tokens.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.refreshToken
	s.accessToken, s.refreshToken = "", ""
	s.mu.Unlock()

	if refreshToken == "" {
		return fmt.Errorf("no refresh token to revoke")
	}
	return s.client.Logout(ctx, refreshToken)
}

// withRefresh calls fn with the current access token and, on a 401, rotates
// the token pair once and retries.
func withRefresh[T any](ctx context.Context, s *Session, fn func(token string) (T, error)) (T, error) {
	token := s.AccessToken()
	out, err := fn(token)

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		return out, err
	}

	fresh, rerr := s.refresh(ctx, token)
	if rerr != nil {
		return out, fmt.Errorf("failed to refresh token: %w", rerr)
	}
	return fn(fresh)
}

// refresh rotates the pair unless another goroutine already replaced stale.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != stale {
		return s.accessToken, nil
	}
	if s.refreshToken == "" {
		return "", fmt.Errorf("access token rejected and no refresh token available")
	}

	pair, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", err
	}

	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
	return s.accessToken, nil
}
