package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/ports"
)

// UpstreamError carries the status and body of a failed Admin API
// call so route handlers can surface them on the 502 path.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("admin api error %d: %s", e.Status, e.Body)
}

// AdminClient posts Admin GraphQL documents. Requests are paced by a
// shared ticker so sequential backfill loops stay inside Shopify's
// rate limits.
type AdminClient struct {
	apiVersion string
	httpClient *http.Client
	limiter    <-chan time.Time
	logger     zerolog.Logger

	// baseURL overrides the per-shop host; tests point it at a local
	// server.
	baseURL string
}

// NewAdminClient creates a paced Admin GraphQL client.
func NewAdminClient(apiVersion string, requestsPerSecond int, logger zerolog.Logger) ports.AdminClient {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 2
	}
	return &AdminClient{
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    time.Tick(time.Second / time.Duration(requestsPerSecond)),
		logger:     logger,
	}
}

// NewAdminClientForURL creates a client pinned to a fixed endpoint.
func NewAdminClientForURL(baseURL string, logger zerolog.Logger) ports.AdminClient {
	return &AdminClient{
		apiVersion: "test",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    time.Tick(time.Millisecond),
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// GraphQL executes one Admin GraphQL call and returns the raw data
// document. Non-2xx responses and GraphQL-level errors both come back
// as *UpstreamError.
func (c *AdminClient) GraphQL(ctx context.Context, shop, accessToken, query string, variables map[string]interface{}) (json.RawMessage, error) {
	select {
	case <-c.limiter:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	endpoint := c.baseURL
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shop, c.apiVersion)
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post graphql: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read graphql response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Str("shop", shop).
			Int("status", resp.StatusCode).
			Msg("Admin GraphQL call failed")
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode graphql response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Body: strings.Join(messages, "; ")}
	}
	return parsed.Data, nil
}
