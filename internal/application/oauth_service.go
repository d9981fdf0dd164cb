package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// ErrStateMismatch rejects an OAuth callback whose state nonce is
// unknown, expired, consumed, or issued for a different shop.
var ErrStateMismatch = errors.New("oauth state mismatch")

// stateTTL bounds how long an install redirect stays valid.
const stateTTL = 10 * time.Minute

// webhookTopics are the subscriptions registered after every install.
var webhookTopics = []string{
	"orders/create",
	"orders/updated",
	"orders/paid",
	"orders/cancelled",
	"orders/fulfilled",
	"products/create",
	"products/update",
	"customers/create",
	"customers/update",
	"carts/create",
	"carts/update",
	"checkouts/create",
	"checkouts/update",
	"app/uninstalled",
}

// OAuthService runs the install handshake: redirect with a one-time
// state nonce, token exchange on callback, credential storage, then
// webhook registration.
type OAuthService struct {
	oauth   ports.OAuthClient
	states  ports.StateStore
	stores  ports.StoreRepository
	tenants ports.TenantRepository
	appURL  string
	logger  zerolog.Logger
}

func NewOAuthService(
	oauth ports.OAuthClient,
	states ports.StateStore,
	stores ports.StoreRepository,
	tenants ports.TenantRepository,
	appURL string,
	logger zerolog.Logger,
) *OAuthService {
	return &OAuthService{
		oauth:   oauth,
		states:  states,
		stores:  stores,
		tenants: tenants,
		appURL:  strings.TrimRight(appURL, "/"),
		logger:  logger,
	}
}

// BeginInstall issues a state nonce and returns the authorization URL
// to redirect the merchant to.
func (s *OAuthService) BeginInstall(ctx context.Context, shop string) (string, error) {
	if !validShopDomain(shop) {
		return "", fmt.Errorf("invalid shop domain %q", shop)
	}

	state := uuid.NewString()
	if err := s.states.Put(ctx, state, shop, stateTTL); err != nil {
		return "", fmt.Errorf("begin install for %s: %w", shop, err)
	}

	s.logger.Info().Str("shop", shop).Msg("Install started")
	return s.oauth.AuthorizeURL(shop, state), nil
}

// CompleteInstall consumes the state nonce, exchanges the code for a
// token, persists the credentials, and registers webhook
// subscriptions. Reinstalling rotates the stored token in place.
func (s *OAuthService) CompleteInstall(ctx context.Context, shop, code, state string) (*domain.Store, error) {
	issuedFor, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStateMismatch, shop)
	}
	if issuedFor != shop {
		return nil, fmt.Errorf("%w: state issued for %s", ErrStateMismatch, issuedFor)
	}

	token, err := s.oauth.ExchangeToken(ctx, shop, code)
	if err != nil {
		return nil, fmt.Errorf("complete install for %s: %w", shop, err)
	}

	tenantID := domain.TenantIDFromShopDomain(shop)
	if err := s.tenants.Ensure(ctx, tenantID, shop); err != nil {
		return nil, fmt.Errorf("complete install for %s: %w", shop, err)
	}

	store := &domain.Store{
		TenantID:    tenantID,
		ShopDomain:  shop,
		AccessToken: token,
	}
	if err := s.stores.Upsert(ctx, store); err != nil {
		return nil, fmt.Errorf("complete install for %s: %w", shop, err)
	}

	// Registration failures are logged inside the client; the install
	// itself already succeeded.
	registered, err := s.oauth.RegisterWebhooks(ctx, shop, token, webhookTopics, s.appURL+"/api/webhooks")
	if err != nil {
		s.logger.Warn().Err(err).Str("shop", shop).Msg("Webhook registration failed after install")
	}

	s.logger.Info().
		Str("shop", shop).
		Str("tenantId", tenantID.Hex()).
		Int("webhooks", registered).
		Msg("Install completed")
	return store, nil
}

// validShopDomain accepts *.myshopify.com hostnames.
func validShopDomain(shop string) bool {
	if shop == "" || strings.ContainsAny(shop, "/?#@ ") {
		return false
	}
	return strings.HasSuffix(shop, ".myshopify.com")
}
