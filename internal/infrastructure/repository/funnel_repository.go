package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// GormFunnelRepository implements FunnelRepository over MySQL. Carts
// and checkouts live together here: they share the reset semantics and
// the dashboard reads either one through the same aggregate shapes.
type GormFunnelRepository struct {
	db *gorm.DB
}

// NewGormFunnelRepository creates a funnel repository on the given
// handle.
func NewGormFunnelRepository(db *gorm.DB) ports.FunnelRepository {
	return &GormFunnelRepository{db: db}
}

// UpsertCart creates or updates the cart keyed by
// (tenant_id, cart_token). updated_at only moves when a value actually
// changed: CartMetrics reads updated_at > created_at as "the cart was
// touched again", so a redelivered identical payload must not bump it.
// The updated_at assignment runs first, before the value columns are
// overwritten.
func (r *GormFunnelRepository) UpsertCart(ctx context.Context, tenantID domain.TenantID, p *domain.CartPayload) error {
	now := time.Now().UTC()
	cart := &domain.Cart{
		TenantID:   tenantID,
		CartToken:  p.CartToken,
		Currency:   p.Currency,
		TotalPrice: p.TotalPrice,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "cart_token"}},
			DoUpdates: clause.Set{
				{
					Column: clause.Column{Name: "updated_at"},
					Value:  gorm.Expr("IF(total_price <=> VALUES(total_price) AND currency <=> VALUES(currency), updated_at, VALUES(updated_at))"),
				},
				{Column: clause.Column{Name: "currency"}, Value: gorm.Expr("VALUES(currency)")},
				{Column: clause.Column{Name: "total_price"}, Value: gorm.Expr("VALUES(total_price)")},
			},
		}).
		Create(cart).Error
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

// UpsertCheckout creates or updates the checkout keyed by
// (tenant_id, shopify_checkout_id).
func (r *GormFunnelRepository) UpsertCheckout(ctx context.Context, tenantID domain.TenantID, p *domain.CheckoutPayload) error {
	checkout := &domain.Checkout{
		TenantID:          tenantID,
		ShopifyCheckoutID: p.ShopifyCheckoutID,
		Currency:          p.Currency,
		TotalPrice:        p.TotalPrice,
		CompletedAt:       p.CompletedAt,
		CreatedAt:         time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "shopify_checkout_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"currency", "total_price", "completed_at", "updated_at"}),
		}).
		Create(checkout).Error
	if err != nil {
		return fmt.Errorf("upsert checkout: %w", err)
	}
	return nil
}

// CountCarts returns the cart row count for the tenant.
func (r *GormFunnelRepository) CountCarts(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Cart{}).
		Where("tenant_id = ?", []byte(tenantID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count carts: %w", err)
	}
	return count, nil
}

// CountCheckouts returns the checkout row count for the tenant.
func (r *GormFunnelRepository) CountCheckouts(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Checkout{}).
		Where("tenant_id = ?", []byte(tenantID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count checkouts: %w", err)
	}
	return count, nil
}

// CartMetrics computes the 24h/7d cart aggregates. A cart counts as
// "completed" when it was touched again after creation within the
// window.
func (r *GormFunnelRepository) CartMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*ports.FunnelMetrics, error) {
	d24 := now.Add(-24 * time.Hour)
	d7 := now.Add(-7 * 24 * time.Hour)

	m := &ports.FunnelMetrics{Value24h: decimal.Zero}

	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Cart{}).
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), d24).
		Count(&m.Created24h).Error; err != nil {
		return nil, fmt.Errorf("cart metrics: %w", err)
	}

	var sum struct{ Total decimal.NullDecimal }
	if err := db.Model(&domain.Cart{}).
		Select("SUM(total_price) AS total").
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), d24).
		Scan(&sum).Error; err != nil {
		return nil, fmt.Errorf("cart metrics: %w", err)
	}
	if sum.Total.Valid {
		m.Value24h = sum.Total.Decimal
	}

	if err := db.Model(&domain.Cart{}).
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), d7).
		Count(&m.Created7d).Error; err != nil {
		return nil, fmt.Errorf("cart metrics: %w", err)
	}
	if err := db.Model(&domain.Cart{}).
		Where("tenant_id = ? AND updated_at >= ? AND updated_at > created_at", []byte(tenantID), d7).
		Count(&m.Completed7d).Error; err != nil {
		return nil, fmt.Errorf("cart metrics: %w", err)
	}
	return m, nil
}

// CheckoutMetrics computes the 24h/7d checkout aggregates. Completion
// means completed_at landed inside the window.
func (r *GormFunnelRepository) CheckoutMetrics(ctx context.Context, tenantID domain.TenantID, now time.Time) (*ports.FunnelMetrics, error) {
	d24 := now.Add(-24 * time.Hour)
	d7 := now.Add(-7 * 24 * time.Hour)

	m := &ports.FunnelMetrics{Value24h: decimal.Zero}

	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Checkout{}).
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), d24).
		Count(&m.Created24h).Error; err != nil {
		return nil, fmt.Errorf("checkout metrics: %w", err)
	}

	var sum struct{ Total decimal.NullDecimal }
	if err := db.Model(&domain.Checkout{}).
		Select("SUM(total_price) AS total").
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), d24).
		Scan(&sum).Error; err != nil {
		return nil, fmt.Errorf("checkout metrics: %w", err)
	}
	if sum.Total.Valid {
		m.Value24h = sum.Total.Decimal
	}

	if err := db.Model(&domain.Checkout{}).
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), d7).
		Count(&m.Created7d).Error; err != nil {
		return nil, fmt.Errorf("checkout metrics: %w", err)
	}
	if err := db.Model(&domain.Checkout{}).
		Where("tenant_id = ? AND completed_at >= ?", []byte(tenantID), d7).
		Count(&m.Completed7d).Error; err != nil {
		return nil, fmt.Errorf("checkout metrics: %w", err)
	}
	return m, nil
}

type seriesRow struct {
	Day     time.Time
	Revenue decimal.NullDecimal
	Count   int64
}

// CartSeries returns the per-day cart revenue/count since the cutoff.
func (r *GormFunnelRepository) CartSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	return r.series(ctx, "carts", tenantID, since)
}

// CheckoutSeries returns the per-day checkout revenue/count since the
// cutoff.
func (r *GormFunnelRepository) CheckoutSeries(ctx context.Context, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	return r.series(ctx, "checkouts", tenantID, since)
}

func (r *GormFunnelRepository) series(ctx context.Context, table string, tenantID domain.TenantID, since time.Time) ([]domain.SeriesPoint, error) {
	var rows []seriesRow
	err := r.db.WithContext(ctx).
		Table(table).
		Select("DATE(created_at) AS day, SUM(total_price) AS revenue, COUNT(*) AS count").
		Where("tenant_id = ? AND created_at >= ?", []byte(tenantID), since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("funnel series: %w", err)
	}

	points := make([]domain.SeriesPoint, 0, len(rows))
	for _, row := range rows {
		revenue := decimal.Zero
		if row.Revenue.Valid {
			revenue = row.Revenue.Decimal
		}
		points = append(points, domain.SeriesPoint{
			Day:     row.Day.Format("2006-01-02"),
			Revenue: revenue,
			Count:   row.Count,
		})
	}
	return points, nil
}

// DeleteCarts removes cart rows, all of them or only those at or after
// the cutoff.
func (r *GormFunnelRepository) DeleteCarts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", []byte(tenantID))
	if cutoff != nil {
		query = query.Where("created_at >= ?", *cutoff)
	}
	result := query.Delete(&domain.Cart{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete carts: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteCheckouts removes checkout rows, all of them or only those at
// or after the cutoff.
func (r *GormFunnelRepository) DeleteCheckouts(ctx context.Context, tenantID domain.TenantID, cutoff *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", []byte(tenantID))
	if cutoff != nil {
		query = query.Where("created_at >= ?", *cutoff)
	}
	result := query.Delete(&domain.Checkout{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete checkouts: %w", result.Error)
	}
	return result.RowsAffected, nil
}
