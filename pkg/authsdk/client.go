package authsdk

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SDKClient is a client for the authcore service. It performs the
// unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new auth service client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Register creates an account and returns its first token pair.
func (c *SDKClient) Register(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/register",
		RegisterRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SDKClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login",
		LoginRequest{Email: email, Password: password}, "")
	if err != nil {
		return nil, err
	}

	var out AuthResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges refreshToken for a new pair. refreshToken is spent even
// when the response is lost in transit.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*TokenPairResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh",
		RefreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, err
	}

	var out TokenPairResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes refreshToken. The server reports success for unknown tokens.
func (c *SDKClient) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/logout",
		RefreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return err
	}

	var out Envelope
	return decodeJSON(resp, &out, http.StatusOK)
}

// Me returns the identity behind accessToken.
func (c *SDKClient) Me(ctx context.Context, accessToken string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/auth/me", nil, accessToken)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SecurityEvents lists recent audit events. Requires an admin access token.
// limit <= 0 lets the server pick its default.
func (c *SDKClient) SecurityEvents(ctx context.Context, accessToken string, limit int) (*SecurityEventsResponse, error) {
	path := "/admin/security-events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, accessToken)
	if err != nil {
		return nil, err
	}

	var out SecurityEventsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// AuthenticateWithPassword logs in and wraps the tokens in a Session.
func (c *SDKClient) AuthenticateWithPassword(ctx context.Context, email, password string) (*Session, error) {
	out, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.NewSessionFromTokens(out.AccessToken, out.RefreshToken), nil
}

// NewSessionFromTokens creates a Session from tokens obtained elsewhere.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string) *Session {
	return &Session{
		client:       c,
		accessToken:  accessToken,
		refreshToken: refreshToken,
	}
}
