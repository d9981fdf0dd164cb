package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// In-memory fakes for the ports the services depend on.

type fakeVerifier struct {
	fail bool
}

func (v *fakeVerifier) Verify(payload []byte, signature string) error {
	if v.fail {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

type fakeTenantRepo struct {
	ensured map[string]string
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{ensured: make(map[string]string)}
}

func (r *fakeTenantRepo) Ensure(ctx context.Context, id domain.TenantID, name string) error {
	r.ensured[id.Hex()] = name
	return nil
}

type fakeStoreRepo struct {
	byDomain map[string]*domain.Store
	deleted  []string
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{byDomain: make(map[string]*domain.Store)}
}

func (r *fakeStoreRepo) Upsert(ctx context.Context, store *domain.Store) error {
	r.byDomain[store.ShopDomain] = store
	return nil
}

func (r *fakeStoreRepo) GetByDomain(ctx context.Context, shopDomain string) (*domain.Store, error) {
	return r.byDomain[shopDomain], nil
}

func (r *fakeStoreRepo) DeleteByDomain(ctx context.Context, shopDomain string) (int64, error) {
	r.deleted = append(r.deleted, shopDomain)
	if _, ok := r.byDomain[shopDomain]; !ok {
		return 0, nil
	}
	delete(r.byDomain, shopDomain)
	return 1, nil
}

type fakeEventLog struct {
	seen    map[string]bool
	records int
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{seen: make(map[string]bool)}
}

func (l *fakeEventLog) Record(ctx context.Context, tenantID domain.TenantID, eventID, eventType string) (bool, error) {
	key := tenantID.Hex() + "/" + eventID
	if l.seen[key] {
		return false, nil
	}
	l.seen[key] = true
	l.records++
	return true, nil
}

type fakeHandler struct {
	topics  map[string]bool
	handled []*domain.WebhookDelivery
	err     error
}

func newFakeHandler(topics ...string) *fakeHandler {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}
	return &fakeHandler{topics: set}
}

func (h *fakeHandler) CanHandle(topic string) bool {
	return h.topics[topic]
}

func (h *fakeHandler) Handle(ctx context.Context, delivery *domain.WebhookDelivery) error {
	if h.err != nil {
		return h.err
	}
	h.handled = append(h.handled, delivery)
	return nil
}

type fakeBus struct {
	published []*domain.WebhookDelivery
}

func (b *fakeBus) Publish(delivery *domain.WebhookDelivery) {
	b.published = append(b.published, delivery)
}

type fakeOrderRepo struct {
	upserted []*domain.OrderPayload
	stats    ports.OrderStats
	series   []domain.SeriesPoint
}

func (r *fakeOrderRepo) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.OrderPayload) (*domain.Order, error) {
	r.upserted = append(r.upserted, p)
	return &domain.Order{
		TenantID:       tenantID,
		ShopifyOrderID: p.ShopifyOrderID,
		Status:         domain.OrderStatusFromFinancial(p.FinancialStatus),
		TotalPrice:     p.TotalPrice,
	}, nil
}

func (r *fakeOrderRepo) Get(ctx context.Context, tenantID domain.TenantID, shopifyOrderID int64) (*domain.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Order, string, error) {
	return nil, "", nil
}

func (r *fakeOrderRepo) Stats(ctx context.Context, tenantID domain.TenantID) (*ports.OrderStats, error) {
	stats := r.stats
	return &stats, nil
}

func (r *fakeOrderRepo) Series(ctx context.Context, tenantID domain.TenantID, from, to *time.Time) ([]domain.SeriesPoint, error) {
	return r.series, nil
}

type fakeProductRepo struct {
	upserted   []*domain.ProductPayload
	total      int64
	recent     int64
	upsertErr  error
	countCalls int
}

func (r *fakeProductRepo) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.ProductPayload) (*domain.Product, error) {
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.upserted = append(r.upserted, p)
	return &domain.Product{TenantID: tenantID, ShopifyProductID: p.ShopifyProductID, Title: p.Title}, nil
}

func (r *fakeProductRepo) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Product, string, error) {
	return nil, "", nil
}

func (r *fakeProductRepo) Count(ctx context.Context, tenantID domain.TenantID, createdSince *time.Time) (int64, error) {
	r.countCalls++
	if createdSince != nil {
		return r.recent, nil
	}
	return r.total, nil
}

type fakeCustomerRepo struct {
	upserted []*domain.CustomerPayload
	total    int64
}

func (r *fakeCustomerRepo) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.CustomerPayload) (*domain.Customer, error) {
	r.upserted = append(r.upserted, p)
	return &domain.Customer{TenantID: tenantID, ShopifyCustomerID: p.ShopifyCustomerID}, nil
}

func (r *fakeCustomerRepo) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Customer, string, error) {
	return nil, "", nil
}

func (r *fakeCustomerRepo) Count(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	return r.total, nil
}

type fakeFunnelRepo struct {
	carts       int64
	checkouts   int64
	cartMetrics ports.FunnelMetrics
	chkMetrics  ports.FunnelMetrics
	cartPoints  []domain.SeriesPoint
	chkPoints   []domain.SeriesPoint

	upsertedCarts     []*domain.CartPayload
	upsertedCheckouts []*domain.CheckoutPayload
	deletedCarts      int64
	deletedCheckouts  int64
}

func (r *fakeFunnelRepo) UpsertCart(ctx context.Context, tenantID domain.TenantID, p *domain.CartPayload) error {
	r.upsertedCarts = append(r.upsertedCarts, p)
	return nil
}

func (r *fakeFunnelRepo) UpsertCheckout(ctx context.Context, tenantID domain.TenantID, p *domain.CheckoutPayload) error {
	r.upsertedCheckouts = append(r.upsertedCheckouts, p)
	return nil
}

func (r *fakeFunnelRepo) CountCarts(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	return r.carts, nil
}

func (r *fakeFunnelRepo) CountCheckouts(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	return r.checkouts, nil
}

func (r *fakeFunnelRepo) CartMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*ports.FunnelMetrics, error) {
	m := r.cartMetrics
	return &m, nil
}

func (r *fakeFunnelRepo) CheckoutMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*ports.FunnelMetrics, error) {
	m := r.chkMetrics
	return &m, nil
}

func (r *fakeFunnelRepo) CartSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	return r.cartPoints, nil
}

func (r *fakeFunnelRepo) CheckoutSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	return r.chkPoints, nil
}

func (r *fakeFunnelRepo) DeleteCarts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error) {
	return r.deletedCarts, nil
}

func (r *fakeFunnelRepo) DeleteCheckouts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error) {
	return r.deletedCheckouts, nil
}

// fakeAdminClient serves scripted GraphQL pages keyed by the "after"
// cursor. failErr fails every call, or only from call number failAt on
// when failAt is set. Tokens and requested page sizes are recorded.
type fakeAdminClient struct {
	pages   map[string]json.RawMessage
	failErr error
	failAt  int
	calls   int
	tokens  []string
	firsts  []int
}

func (c *fakeAdminClient) GraphQL(ctx context.Context, shop, accessToken, query string, variables map[string]interface{}) (json.RawMessage, error) {
	c.calls++
	c.tokens = append(c.tokens, accessToken)
	if first, ok := variables["first"].(int); ok {
		c.firsts = append(c.firsts, first)
	}
	if c.failErr != nil && (c.failAt == 0 || c.calls >= c.failAt) {
		return nil, c.failErr
	}
	after := ""
	if v, ok := variables["after"].(*string); ok && v != nil {
		after = *v
	}
	page, ok := c.pages[after]
	if !ok {
		return nil, fmt.Errorf("no page scripted for cursor %q", after)
	}
	return page, nil
}

// productsPage builds one products connection page for the fake admin
// client.
func productsPage(field string, start, count int, endCursor string, hasNext bool) json.RawMessage {
	edges := make([]map[string]interface{}, 0, count)
	for i := 0; i < count; i++ {
		edges = append(edges, map[string]interface{}{
			"node": map[string]interface{}{
				"id":    fmt.Sprintf("gid://shopify/Product/%d", start+i),
				"title": fmt.Sprintf("Product %d", start+i),
			},
		})
	}
	doc := map[string]interface{}{
		field: map[string]interface{}{
			"pageInfo": map[string]interface{}{
				"hasNextPage": hasNext,
				"endCursor":   endCursor,
			},
			"edges": edges,
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

type fakeStateStore struct {
	states map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{states: make(map[string]string)}
}

func (s *fakeStateStore) Put(ctx context.Context, state, shop string, ttl time.Duration) error {
	if _, ok := s.states[state]; ok {
		return fmt.Errorf("state exists")
	}
	s.states[state] = shop
	return nil
}

func (s *fakeStateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, ok := s.states[state]
	if !ok {
		return "", fmt.Errorf("state not found")
	}
	delete(s.states, state)
	return shop, nil
}

type fakeOAuthClient struct {
	token            string
	exchangeErr      error
	registeredTopics []string
	registeredBase   string
}

func (c *fakeOAuthClient) AuthorizeURL(shop, state string) string {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state
}

func (c *fakeOAuthClient) ExchangeToken(ctx context.Context, shop, code string) (string, error) {
	if c.exchangeErr != nil {
		return "", c.exchangeErr
	}
	return c.token, nil
}

func (c *fakeOAuthClient) RegisterWebhooks(ctx context.Context, shop, accessToken string, topics []string, baseAddress string) (int, error) {
	c.registeredTopics = topics
	c.registeredBase = baseAddress
	return len(topics), nil
}
