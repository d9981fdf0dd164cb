package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// GormOrderRepository implements OrderRepository over MySQL.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates an order repository on the given
// handle.
func NewGormOrderRepository(db *gorm.DB) ports.OrderRepository {
	return &GormOrderRepository{db: db}
}

// Upsert creates or updates the order keyed by
// (tenant_id, shopify_order_id). Applying the same payload twice
// converges on the same row; the database's upsert atomicity is the
// serialization point under concurrent delivery.
func (r *GormOrderRepository) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.OrderPayload) (*domain.Order, error) {
	order := &domain.Order{
		TenantID:          tenantID,
		ShopifyOrderID:    p.ShopifyOrderID,
		CustomerShopifyID: p.CustomerShopifyID,
		Status:            domain.OrderStatusFromFinancial(p.FinancialStatus),
		TotalPrice:        p.TotalPrice,
		Currency:          p.Currency,
		CreatedAt:         p.CreatedAt,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "shopify_order_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "total_price", "currency", "created_at", "updated_at"}),
		}).
		Create(order).Error
	if err != nil {
		return nil, fmt.Errorf("upsert order: %w", err)
	}
	return r.Get(ctx, tenantID, p.ShopifyOrderID)
}

// Get returns the order by its natural key, or nil when absent.
func (r *GormOrderRepository) Get(ctx context.Context, tenantID domain.TenantID, shopifyOrderID int64) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND shopify_order_id = ?", []byte(tenantID), shopifyOrderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

// List pages orders in (created_at desc, id desc) order with a keyset
// cursor.
func (r *GormOrderRepository) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Order, string, error) {
	take := clampLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", []byte(tenantID)).
		Scopes(createdWindow(params))
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	anchorID, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if anchorID != 0 {
		var anchor domain.Order
		if err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND id = ?", []byte(tenantID), anchorID).
			First(&anchor).Error; err != nil {
			return nil, "", fmt.Errorf("resolve cursor: %w", err)
		}
		query = query.Scopes(keysetAfter(anchor.CreatedAt, anchor.ID))
	}

	var items []domain.Order
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(take + 1).
		Find(&items).Error; err != nil {
		return nil, "", fmt.Errorf("list orders: %w", err)
	}

	nextCursor := ""
	if len(items) > take {
		items = items[:take]
		nextCursor = strconv.FormatUint(items[take-1].ID, 10)
	}
	return items, nextCursor, nil
}

// Stats returns the tenant's all-time order count and revenue sum.
func (r *GormOrderRepository) Stats(ctx context.Context, tenantID domain.TenantID) (*ports.OrderStats, error) {
	var row struct {
		Count   int64
		Revenue decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("COUNT(*) AS count, SUM(total_price) AS revenue").
		Where("tenant_id = ?", []byte(tenantID)).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	stats := &ports.OrderStats{Count: row.Count, Revenue: decimal.Zero}
	if row.Revenue.Valid {
		stats.Revenue = row.Revenue.Decimal
	}
	return stats, nil
}

// Series buckets orders per day, optionally bounded by [from, to].
func (r *GormOrderRepository) Series(ctx context.Context, tenantID domain.TenantID, from, to *time.Time) ([]domain.SeriesPoint, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("DATE(created_at) AS day, SUM(total_price) AS revenue, COUNT(*) AS count").
		Where("tenant_id = ?", []byte(tenantID))
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}

	var rows []seriesRow
	if err := query.
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("order series: %w", err)
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
