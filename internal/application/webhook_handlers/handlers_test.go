package webhook_handlers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

var tenant = domain.TenantIDFromShopDomain("acme.myshopify.com")

func delivery(topic string, payload string) *domain.WebhookDelivery {
	return &domain.WebhookDelivery{
		Topic:    topic,
		Shop:     "acme.myshopify.com",
		TenantID: tenant,
		EventID:  "evt-1",
		Payload:  []byte(payload),
	}
}

type orderRepoStub struct {
	last *domain.OrderPayload
}

func (r *orderRepoStub) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.OrderPayload) (*domain.Order, error) {
	r.last = p
	return &domain.Order{Status: domain.OrderStatusFromFinancial(p.FinancialStatus)}, nil
}

func (r *orderRepoStub) Get(ctx context.Context, tenantID domain.TenantID, shopifyOrderID int64) (*domain.Order, error) {
	return nil, nil
}

func (r *orderRepoStub) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Order, string, error) {
	return nil, "", nil
}

func (r *orderRepoStub) Stats(ctx context.Context, tenantID domain.TenantID) (*ports.OrderStats, error) {
	return &ports.OrderStats{}, nil
}

func (r *orderRepoStub) Series(ctx context.Context, tenantID domain.TenantID, from, to *time.Time) ([]domain.SeriesPoint, error) {
	return nil, nil
}

type funnelRepoStub struct {
	cart     *domain.CartPayload
	checkout *domain.CheckoutPayload
}

func (r *funnelRepoStub) UpsertCart(ctx context.Context, tenantID domain.TenantID, p *domain.CartPayload) error {
	r.cart = p
	return nil
}

func (r *funnelRepoStub) UpsertCheckout(ctx context.Context, tenantID domain.TenantID, p *domain.CheckoutPayload) error {
	r.checkout = p
	return nil
}

func (r *funnelRepoStub) CountCarts(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	return 0, nil
}

func (r *funnelRepoStub) CountCheckouts(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	return 0, nil
}

func (r *funnelRepoStub) CartMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*ports.FunnelMetrics, error) {
	return &ports.FunnelMetrics{}, nil
}

func (r *funnelRepoStub) CheckoutMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*ports.FunnelMetrics, error) {
	return &ports.FunnelMetrics{}, nil
}

func (r *funnelRepoStub) CartSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	return nil, nil
}

func (r *funnelRepoStub) CheckoutSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	return nil, nil
}

func (r *funnelRepoStub) DeleteCarts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error) {
	return 0, nil
}

func (r *funnelRepoStub) DeleteCheckouts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error) {
	return 0, nil
}

type storeRepoStub struct {
	deleted []string
}

func (r *storeRepoStub) Upsert(ctx context.Context, store *domain.Store) error { return nil }

func (r *storeRepoStub) GetByDomain(ctx context.Context, shopDomain string) (*domain.Store, error) {
	return nil, nil
}

func (r *storeRepoStub) DeleteByDomain(ctx context.Context, shopDomain string) (int64, error) {
	r.deleted = append(r.deleted, shopDomain)
	return 1, nil
}

func TestOrderHandlerTopics(t *testing.T) {
	h := NewOrderHandler(&orderRepoStub{}, zerolog.Nop())

	for _, topic := range []string{"orders/create", "orders/updated", "orders/paid", "orders/cancelled", "orders/fulfilled"} {
		assert.True(t, h.CanHandle(topic), topic)
	}
	assert.False(t, h.CanHandle("orders/delete"))
	assert.False(t, h.CanHandle("products/create"))
}

func TestOrderHandlerUpserts(t *testing.T) {
	repo := &orderRepoStub{}
	h := NewOrderHandler(repo, zerolog.Nop())

	err := h.Handle(context.Background(), delivery("orders/create", `{"id": 5001, "total_price": "10.00", "financial_status": "paid"}`))
	require.NoError(t, err)
	require.NotNil(t, repo.last)
	assert.Equal(t, int64(5001), repo.last.ShopifyOrderID)
	assert.Equal(t, "paid", repo.last.FinancialStatus)
}

func TestOrderHandlerRejectsMalformedPayload(t *testing.T) {
	repo := &orderRepoStub{}
	h := NewOrderHandler(repo, zerolog.Nop())

	err := h.Handle(context.Background(), delivery("orders/create", `{"total_price": "10.00"}`))
	require.Error(t, err)
	assert.Nil(t, repo.last)
}

func TestCartHandlerUpserts(t *testing.T) {
	repo := &funnelRepoStub{}
	h := NewCartHandler(repo, zerolog.Nop())

	err := h.Handle(context.Background(), delivery("carts/create", `{"token": "tok-1", "items_subtotal_price": "25.00"}`))
	require.NoError(t, err)
	require.NotNil(t, repo.cart)
	assert.Equal(t, "tok-1", repo.cart.CartToken)
	assert.Equal(t, "25", repo.cart.TotalPrice.String())
}

func TestCheckoutHandlerUpserts(t *testing.T) {
	repo := &funnelRepoStub{}
	h := NewCheckoutHandler(repo, zerolog.Nop())

	err := h.Handle(context.Background(), delivery("checkouts/update", `{"id": 3001, "total_price": "55.00", "completed_at": "2025-03-01T10:00:00Z"}`))
	require.NoError(t, err)
	require.NotNil(t, repo.checkout)
	assert.Equal(t, int64(3001), repo.checkout.ShopifyCheckoutID)
	assert.NotNil(t, repo.checkout.CompletedAt)
}

func TestAppUninstalledHandlerDeletesStore(t *testing.T) {
	repo := &storeRepoStub{}
	h := NewAppUninstalledHandler(repo, zerolog.Nop())

	assert.True(t, h.CanHandle("app/uninstalled"))

	err := h.Handle(context.Background(), delivery("app/uninstalled", `{}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"acme.myshopify.com"}, repo.deleted)
}
