package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shopsight-backend/internal/domain"
)

// ListParams drives keyset-paginated listings. Cursor is the internal
// id of the last row of the previous page; pages are ordered
// (created_at desc, id desc).
type ListParams struct {
	From   *time.Time
	To     *time.Time
	Status domain.OrderStatus // orders only; empty means all
	Limit  int
	Cursor string
}

// TenantRepository persists tenants. Tenants are create-only.
type TenantRepository interface {
	// Ensure inserts the tenant if absent; an existing row is left
	// untouched.
	Ensure(ctx context.Context, id domain.TenantID, name string) error
}

// StoreRepository persists the shop domain → credential mapping.
type StoreRepository interface {
	Upsert(ctx context.Context, store *domain.Store) error
	GetByDomain(ctx context.Context, shopDomain string) (*domain.Store, error)
	// DeleteByDomain removes the store row on uninstall and returns the
	// number of rows removed.
	DeleteByDomain(ctx context.Context, shopDomain string) (int64, error)
}

// EventLog is the webhook dedup log.
type EventLog interface {
	// Record inserts (tenant, eventID) if absent. inserted == false
	// means the pair already exists and the event must be skipped. The
	// unique constraint is the only dedup authority; Record is safe
	// under concurrent redelivery.
	Record(ctx context.Context, tenantID domain.TenantID, eventID, eventType string) (inserted bool, err error)
}

// CustomerRepository upserts and lists customers for one tenant.
type CustomerRepository interface {
	Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.CustomerPayload) (*domain.Customer, error)
	List(ctx context.Context, tenantID domain.TenantID, params ListParams) (items []domain.Customer, nextCursor string, err error)
	Count(ctx context.Context, tenantID domain.TenantID) (int64, error)
}

// ProductRepository upserts and lists products for one tenant.
type ProductRepository interface {
	Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.ProductPayload) (*domain.Product, error)
	List(ctx context.Context, tenantID domain.TenantID, params ListParams) (items []domain.Product, nextCursor string, err error)
	Count(ctx context.Context, tenantID domain.TenantID, createdSince *time.Time) (int64, error)
}

// OrderStats is the all-time order aggregate for the overview view.
type OrderStats struct {
	Count   int64
	Revenue decimal.Decimal
}

// OrderRepository upserts and lists orders for one tenant.
type OrderRepository interface {
	Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.OrderPayload) (*domain.Order, error)
	Get(ctx context.Context, tenantID domain.TenantID, shopifyOrderID int64) (*domain.Order, error)
	List(ctx context.Context, tenantID domain.TenantID, params ListParams) (items []domain.Order, nextCursor string, err error)
	// Stats returns the tenant's total order count and summed revenue.
	Stats(ctx context.Context, tenantID domain.TenantID) (*OrderStats, error)
	// Series buckets orders per day inside the optional window.
	Series(ctx context.Context, tenantID domain.TenantID, from, to *time.Time) ([]domain.SeriesPoint, error)
}

// FunnelRepository covers the volatile cart/checkout tables, including
// the wholesale resets and the aggregate reads the dashboard needs.
type FunnelRepository interface {
	UpsertCart(ctx context.Context, tenantID domain.TenantID, p *domain.CartPayload) error
	UpsertCheckout(ctx context.Context, tenantID domain.TenantID, p *domain.CheckoutPayload) error

	CountCarts(ctx context.Context, tenantID domain.TenantID) (int64, error)
	CountCheckouts(ctx context.Context, tenantID domain.TenantID) (int64, error)

	// CartWindow and CheckoutWindow return (created in window, summed
	// value in window) for the 24h metrics plus the 7d counts the
	// completion rate needs.
	CartMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*FunnelMetrics, error)
	CheckoutMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*FunnelMetrics, error)

	CartSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error)
	CheckoutSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error)

	// DeleteCarts/DeleteCheckouts remove funnel rows for the tenant;
	// a non-nil cutoff restricts deletion to rows created at or after
	// it. Both return the number of rows removed.
	DeleteCarts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error)
	DeleteCheckouts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error)
}

// FunnelMetrics is the window aggregate a Summary is assembled from.
type FunnelMetrics struct {
	Created24h  int64
	Value24h    decimal.Decimal
	Created7d   int64
	Completed7d int64
}
