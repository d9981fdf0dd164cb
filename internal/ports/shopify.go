package ports

import (
	"context"
	"encoding/json"
	"time"
)

// AdminClient executes Admin GraphQL calls against one shop. The raw
// data document is returned; callers own the typed decode.
type AdminClient interface {
	GraphQL(ctx context.Context, shop, accessToken, query string, variables map[string]interface{}) (json.RawMessage, error)
}

// OAuthClient covers the install handshake and the post-install
// webhook subscriptions.
type OAuthClient interface {
	// AuthorizeURL builds the merchant-facing authorization redirect
	// for the given shop and anti-forgery state.
	AuthorizeURL(shop, state string) string
	// ExchangeToken trades the authorization code for an access token.
	ExchangeToken(ctx context.Context, shop, code string) (string, error)
	// RegisterWebhooks subscribes the given topics, pointing them at
	// baseAddress/{topic}. Failures are reported per topic; a partial
	// registration does not fail the install.
	RegisterWebhooks(ctx context.Context, shop, accessToken string, topics []string, baseAddress string) (registered int, err error)
}

// StateStore holds OAuth state nonces between install and callback.
type StateStore interface {
	// Put stores state → shop with a TTL.
	Put(ctx context.Context, state, shop string, ttl time.Duration) error
	// Consume returns the shop for a state and deletes it atomically;
	// an unknown or already-consumed state is an error.
	Consume(ctx context.Context, state string) (shop string, err error)
}
