package authsdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// GetLiveness calls GET /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/livez")
}

// GetReadiness calls GET /readyz. When the service reports itself degraded
// the decoded body is returned together with the *APIError for the 503.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.probe(ctx, "/readyz")
}

func (c *SDKClient) probe(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health *HealthResponse
	if h := new(HealthResponse); json.Unmarshal(body, h) == nil && h.Status != "" {
		health = h
	}

	if err := parseErrorResponse(resp, body); err != nil {
		return health, err
	}
	if health == nil {
		return nil, errors.New("failed to decode health response")
	}
	return health, nil
}
