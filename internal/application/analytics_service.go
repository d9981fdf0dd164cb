package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// analyticsReadLimit caps how many records one direct Admin API read
// pulls per connection.
const analyticsReadLimit = 250

// Overview is the storefront-wide aggregate view for a date window.
type Overview struct {
	Products        int64           `json:"products"`
	Customers       int64           `json:"customers"`
	Orders          int64           `json:"orders"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	AvgOrderValue   decimal.Decimal `json:"avgOrderValue"`
	FulfillmentRate float64         `json:"fulfillmentRate"`
}

// AnalyticsService assembles the dashboard reads. Funnel metrics come
// from cart rows when the tenant has any, otherwise from checkout
// rows, otherwise they are zeros; the response always names which
// source was used. Overview and OrdersByDate read the Admin API
// directly and bucket in-process, dropping to the local tables only
// when the upstream read fails.
type AnalyticsService struct {
	products  ports.ProductRepository
	customers ports.CustomerRepository
	orders    ports.OrderRepository
	funnel    ports.FunnelRepository
	resolver  *TenantResolver
	admin     ports.AdminClient
	now       func() time.Time
	logger    zerolog.Logger
}

func NewAnalyticsService(
	products ports.ProductRepository,
	customers ports.CustomerRepository,
	orders ports.OrderRepository,
	funnel ports.FunnelRepository,
	resolver *TenantResolver,
	admin ports.AdminClient,
	logger zerolog.Logger,
) *AnalyticsService {
	return &AnalyticsService{
		products:  products,
		customers: customers,
		orders:    orders,
		funnel:    funnel,
		resolver:  resolver,
		admin:     admin,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Summary computes the headline dashboard card.
func (s *AnalyticsService) Summary(ctx context.Context, tenantID domain.TenantID) (*domain.Summary, error) {
	now := s.now()
	weekAgo := now.Add(-7 * 24 * time.Hour)

	productCount, err := s.products.Count(ctx, tenantID, nil)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	newProducts, err := s.products.Count(ctx, tenantID, &weekAgo)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	summary := &domain.Summary{
		ProductCount:     productCount,
		NewProducts7d:    newProducts,
		CheckoutValue24h: decimal.Zero,
		Source:           domain.FunnelSourceNone,
	}

	source, err := s.funnelSource(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	var metrics *ports.FunnelMetrics
	switch source {
	case domain.FunnelSourceCart:
		metrics, err = s.funnel.CartMetrics(ctx, tenantID, now)
	case domain.FunnelSourceCheckout:
		metrics, err = s.funnel.CheckoutMetrics(ctx, tenantID, now)
	default:
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	summary.Source = source
	summary.ActiveCheckouts24h = metrics.Created24h
	summary.CheckoutValue24h = metrics.Value24h
	if metrics.Created7d > 0 {
		summary.CompletionRate7d = float64(metrics.Completed7d) / float64(metrics.Created7d)
	}
	return summary, nil
}

// CheckoutSeries returns the per-day funnel series for the trailing
// window, from the same source the summary would use.
func (s *AnalyticsService) CheckoutSeries(ctx context.Context, tenantID domain.TenantID, days int) ([]domain.SeriesPoint, domain.FunnelSource, error) {
	if days <= 0 {
		days = 7
	}
	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	source, err := s.funnelSource(ctx, tenantID)
	if err != nil {
		return nil, domain.FunnelSourceNone, fmt.Errorf("checkout series: %w", err)
	}

	var points []domain.SeriesPoint
	switch source {
	case domain.FunnelSourceCart:
		points, err = s.funnel.CartSeries(ctx, tenantID, since)
	case domain.FunnelSourceCheckout:
		points, err = s.funnel.CheckoutSeries(ctx, tenantID, since)
	default:
		return []domain.SeriesPoint{}, domain.FunnelSourceNone, nil
	}
	if err != nil {
		return nil, source, fmt.Errorf("checkout series: %w", err)
	}
	return points, source, nil
}

const overviewQuery = `query analyticsOverview($q: String!, $first: Int!) {
  orders(first: $first, query: $q, sortKey: CREATED_AT) {
    edges {
      node {
        id
        createdAt
        totalPriceSet { shopMoney { amount } }
        displayFulfillmentStatus
      }
    }
  }
  products(first: $first) { edges { node { id } } }
  customers(first: $first) { edges { node { id } } }
}`

const ordersWindowQuery = `query analyticsOrdersByDate($q: String!, $first: Int!) {
  orders(first: $first, query: $q, sortKey: CREATED_AT) {
    edges {
      node {
        id
        createdAt
        totalPriceSet { shopMoney { amount } }
        displayFulfillmentStatus
      }
    }
  }
}`

type windowedOrderNode struct {
	CreatedAt     time.Time `json:"createdAt"`
	TotalPriceSet *struct {
		ShopMoney shopMoney `json:"shopMoney"`
	} `json:"totalPriceSet"`
	DisplayFulfillmentStatus string `json:"displayFulfillmentStatus"`
}

func (n *windowedOrderNode) amount() decimal.Decimal {
	if n.TotalPriceSet == nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(n.TotalPriceSet.ShopMoney.Amount)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// window normalizes the requested date range, defaulting to the
// trailing 30 days.
func (s *AnalyticsService) window(from, to *time.Time) (time.Time, time.Time) {
	end := s.now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}
	return start, end
}

func orderSearchQuery(start, end time.Time) string {
	return fmt.Sprintf("created_at:>=%s created_at:<=%s",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Overview computes the window's totals from a direct Admin API read.
// When the shop never installed there is no credential and the read
// fails with ErrStoreNotFound; when the upstream call itself fails, the
// locally synced tables stand in.
func (s *AnalyticsService) Overview(ctx context.Context, shop string, from, to *time.Time) (*Overview, error) {
	store, err := s.resolver.ResolveStore(ctx, shop)
	if err != nil {
		return nil, err
	}
	start, end := s.window(from, to)

	data, err := s.admin.GraphQL(ctx, store.ShopDomain, store.AccessToken, overviewQuery, map[string]interface{}{
		"q":     orderSearchQuery(start, end),
		"first": analyticsReadLimit,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("shop", shop).
			Msg("Overview upstream read failed, serving local aggregates")
		return s.localOverview(ctx, store.TenantID)
	}

	var body struct {
		Orders struct {
			Edges []struct {
				Node windowedOrderNode `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
		Products struct {
			Edges []json.RawMessage `json:"edges"`
		} `json:"products"`
		Customers struct {
			Edges []json.RawMessage `json:"edges"`
		} `json:"customers"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("overview: decode response: %w", err)
	}

	overview := &Overview{
		Products:      int64(len(body.Products.Edges)),
		Customers:     int64(len(body.Customers.Edges)),
		Orders:        int64(len(body.Orders.Edges)),
		TotalRevenue:  decimal.Zero,
		AvgOrderValue: decimal.Zero,
	}
	fulfilled := 0
	for _, edge := range body.Orders.Edges {
		overview.TotalRevenue = overview.TotalRevenue.Add(edge.Node.amount())
		if edge.Node.DisplayFulfillmentStatus == "FULFILLED" {
			fulfilled++
		}
	}
	if overview.Orders > 0 {
		overview.AvgOrderValue = overview.TotalRevenue.Div(decimal.NewFromInt(overview.Orders)).Round(2)
		overview.FulfillmentRate = float64(fulfilled) / float64(overview.Orders)
	}
	return overview, nil
}

// localOverview serves the synced tables when the Admin API is
// unreachable.
func (s *AnalyticsService) localOverview(ctx context.Context, tenantID domain.TenantID) (*Overview, error) {
	productCount, err := s.products.Count(ctx, tenantID, nil)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	customers, err := s.customers.Count(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	stats, err := s.orders.Stats(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("overview: %w", err)
	}
	overview := &Overview{
		Products:      productCount,
		Customers:     customers,
		Orders:        stats.Count,
		TotalRevenue:  stats.Revenue,
		AvgOrderValue: decimal.Zero,
	}
	if stats.Count > 0 {
		overview.AvgOrderValue = stats.Revenue.Div(decimal.NewFromInt(stats.Count)).Round(2)
	}
	return overview, nil
}

// OrdersByDate buckets the window's orders per day from a direct Admin
// API read, with every day of the window present even when empty. The
// locally synced orders stand in when the upstream call fails.
func (s *AnalyticsService) OrdersByDate(ctx context.Context, shop string, from, to *time.Time) ([]domain.SeriesPoint, error) {
	store, err := s.resolver.ResolveStore(ctx, shop)
	if err != nil {
		return nil, err
	}
	start, end := s.window(from, to)

	data, err := s.admin.GraphQL(ctx, store.ShopDomain, store.AccessToken, ordersWindowQuery, map[string]interface{}{
		"q":     orderSearchQuery(start, end),
		"first": analyticsReadLimit,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("shop", shop).
			Msg("Orders-by-date upstream read failed, serving local series")
		points, err := s.orders.Series(ctx, store.TenantID, &start, &end)
		if err != nil {
			return nil, fmt.Errorf("orders by date: %w", err)
		}
		return points, nil
	}

	var body struct {
		Orders struct {
			Edges []struct {
				Node windowedOrderNode `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("orders by date: decode response: %w", err)
	}

	buckets := make(map[string]*domain.SeriesPoint)
	for _, edge := range body.Orders.Edges {
		day := edge.Node.CreatedAt.UTC().Format("2006-01-02")
		point, ok := buckets[day]
		if !ok {
			point = &domain.SeriesPoint{Day: day, Revenue: decimal.Zero}
			buckets[day] = point
		}
		point.Count++
		point.Revenue = point.Revenue.Add(edge.Node.amount())
	}

	points := make([]domain.SeriesPoint, 0)
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		if point, ok := buckets[key]; ok {
			points = append(points, *point)
			continue
		}
		points = append(points, domain.SeriesPoint{Day: key, Revenue: decimal.Zero})
	}
	return points, nil
}

func (s *AnalyticsService) funnelSource(ctx context.Context, tenantID domain.TenantID) (domain.FunnelSource, error) {
	carts, err := s.funnel.CountCarts(ctx, tenantID)
	if err != nil {
		return domain.FunnelSourceNone, err
	}
	if carts > 0 {
		return domain.FunnelSourceCart, nil
	}
	checkouts, err := s.funnel.CountCheckouts(ctx, tenantID)
	if err != nil {
		return domain.FunnelSourceNone, err
	}
	if checkouts > 0 {
		return domain.FunnelSourceCheckout, nil
	}
	return domain.FunnelSourceNone, nil
}
