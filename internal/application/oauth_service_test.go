package application

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsight-backend/internal/domain"
)

func newOAuthFixture() (*OAuthService, *fakeOAuthClient, *fakeStateStore, *fakeStoreRepo, *fakeTenantRepo) {
	client := &fakeOAuthClient{token: "shpat_abc"}
	states := newFakeStateStore()
	stores := newFakeStoreRepo()
	tenants := newFakeTenantRepo()
	service := NewOAuthService(client, states, stores, tenants, "https://app.example.com", zerolog.Nop())
	return service, client, states, stores, tenants
}

func TestBeginInstallIssuesState(t *testing.T) {
	service, _, states, _, _ := newOAuthFixture()

	authURL, err := service.BeginInstall(context.Background(), "acme.myshopify.com")
	require.NoError(t, err)

	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	state := parsed.Query().Get("state")
	require.NotEmpty(t, state)
	assert.Equal(t, "acme.myshopify.com", states.states[state])
}

func TestBeginInstallRejectsBadDomains(t *testing.T) {
	service, _, _, _, _ := newOAuthFixture()

	for _, shop := range []string{"", "acme.example.com", "acme.myshopify.com/evil", "a b.myshopify.com"} {
		_, err := service.BeginInstall(context.Background(), shop)
		assert.Error(t, err, shop)
	}
}

func TestCompleteInstallStoresCredentials(t *testing.T) {
	service, client, _, stores, tenants := newOAuthFixture()
	ctx := context.Background()

	authURL, err := service.BeginInstall(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)
	state := parsed.Query().Get("state")

	store, err := service.CompleteInstall(ctx, "acme.myshopify.com", "code-1", state)
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", store.AccessToken)
	assert.True(t, store.TenantID.Equal(domain.TenantIDFromShopDomain("acme.myshopify.com")))

	saved := stores.byDomain["acme.myshopify.com"]
	require.NotNil(t, saved)
	assert.Equal(t, "shpat_abc", saved.AccessToken)
	assert.Contains(t, tenants.ensured, store.TenantID.Hex())

	assert.Contains(t, client.registeredTopics, "orders/create")
	assert.Contains(t, client.registeredTopics, "app/uninstalled")
	assert.True(t, strings.HasSuffix(client.registeredBase, "/api/webhooks"))
}

func TestCompleteInstallUnknownState(t *testing.T) {
	service, _, _, _, _ := newOAuthFixture()

	_, err := service.CompleteInstall(context.Background(), "acme.myshopify.com", "code", "bogus")
	require.ErrorIs(t, err, ErrStateMismatch)
}

func TestCompleteInstallShopMismatch(t *testing.T) {
	service, _, _, stores, _ := newOAuthFixture()
	ctx := context.Background()

	authURL, err := service.BeginInstall(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)
	state := parsed.Query().Get("state")

	_, err = service.CompleteInstall(ctx, "globex.myshopify.com", "code", state)
	require.ErrorIs(t, err, ErrStateMismatch)
	assert.Empty(t, stores.byDomain)
}

func TestCompleteInstallStateIsSingleUse(t *testing.T) {
	service, _, _, _, _ := newOAuthFixture()
	ctx := context.Background()

	authURL, err := service.BeginInstall(ctx, "acme.myshopify.com")
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)
	state := parsed.Query().Get("state")

	_, err = service.CompleteInstall(ctx, "acme.myshopify.com", "code", state)
	require.NoError(t, err)

	_, err = service.CompleteInstall(ctx, "acme.myshopify.com", "code", state)
	require.ErrorIs(t, err, ErrStateMismatch)
}
