package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminClientReturnsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token-123", r.Header.Get("X-Shopify-Access-Token"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "orders")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": {"orders": {"edges": []}}}`))
	}))
	defer server.Close()

	client := NewAdminClientForURL(server.URL, zerolog.Nop())
	data, err := client.GraphQL(context.Background(), "acme.myshopify.com", "token-123", "query { orders }", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"orders": {"edges": []}}`, string(data))
}

func TestAdminClientNonOKIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("throttled"))
	}))
	defer server.Close()

	client := NewAdminClientForURL(server.URL, zerolog.Nop())
	_, err := client.GraphQL(context.Background(), "acme.myshopify.com", "t", "query {}", nil)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
	assert.Equal(t, "throttled", upstream.Body)
}

func TestAdminClientGraphQLErrorsAreUpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null, "errors": [{"message": "field missing"}]}`))
	}))
	defer server.Close()

	client := NewAdminClientForURL(server.URL, zerolog.Nop())
	_, err := client.GraphQL(context.Background(), "acme.myshopify.com", "t", "query {}", nil)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Body, "field missing")
}

func TestAdminClientHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewAdminClientForURL("http://localhost:0", zerolog.Nop())
	_, err := client.GraphQL(ctx, "acme.myshopify.com", "t", "query {}", nil)
	require.Error(t, err)
}
