package shopify

import (
	"context"
	"fmt"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"

	"shopsight-backend/internal/ports"
)

// OAuthClient implements the install handshake on top of go-shopify.
type OAuthClient struct {
	app    goshopify.App
	logger zerolog.Logger
}

// NewOAuthClient creates an OAuth client for the app credential pair.
// scopes is the comma-separated scope list; redirectURI must match the
// URI registered with the app.
func NewOAuthClient(apiKey, apiSecret, scopes, redirectURI string, logger zerolog.Logger) ports.OAuthClient {
	return &OAuthClient{
		app: goshopify.App{
			ApiKey:      apiKey,
			ApiSecret:   apiSecret,
			RedirectUrl: redirectURI,
			Scope:       scopes,
		},
		logger: logger,
	}
}

// AuthorizeURL builds the merchant authorization redirect.
func (c *OAuthClient) AuthorizeURL(shop, state string) string {
	authURL, err := c.app.AuthorizeUrl(shop, state)
	if err != nil {
		// AuthorizeUrl only fails on an unparseable shop name; fall
		// back to the canonical URL shape so the caller still gets a
		// redirect target.
		c.logger.Warn().Err(err).Str("shop", shop).Msg("Falling back to manual authorize URL")
		return fmt.Sprintf("https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
			shop, c.app.ApiKey, c.app.Scope, c.app.RedirectUrl, state)
	}
	return authURL
}

// ExchangeToken trades the authorization code for an access token.
func (c *OAuthClient) ExchangeToken(ctx context.Context, shop, code string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("exchange token for %s: %w", shop, err)
	}
	return token, nil
}

// RegisterWebhooks subscribes every topic, addressed at
// baseAddress/{topic}. Individual failures are logged and counted but
// do not abort the remaining topics; a reinstall can always re-run the
// registration.
func (c *OAuthClient) RegisterWebhooks(ctx context.Context, shop, accessToken string, topics []string, baseAddress string) (int, error) {
	client, err := goshopify.NewClient(c.app, shop, accessToken)
	if err != nil {
		return 0, fmt.Errorf("create client for %s: %w", shop, err)
	}

	base := strings.TrimRight(baseAddress, "/")
	registered := 0
	for _, topic := range topics {
		_, err := client.Webhook.Create(ctx, goshopify.Webhook{
			Topic:   topic,
			Address: base + "/" + topic,
			Format:  "json",
		})
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("shop", shop).
				Str("topic", topic).
				Msg("Webhook registration failed")
			continue
		}
		registered++
	}

	c.logger.Info().
		Str("shop", shop).
		Int("registered", registered).
		Int("requested", len(topics)).
		Msg("Webhook registration finished")
	return registered, nil
}
