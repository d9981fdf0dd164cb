package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// GormProductRepository implements ProductRepository over MySQL.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a product repository on the given
// handle.
func NewGormProductRepository(db *gorm.DB) ports.ProductRepository {
	return &GormProductRepository{db: db}
}

// Upsert creates or updates the product keyed by
// (tenant_id, shopify_product_id).
func (r *GormProductRepository) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.ProductPayload) (*domain.Product, error) {
	product := &domain.Product{
		TenantID:         tenantID,
		ShopifyProductID: p.ShopifyProductID,
		Title:            p.Title,
		CreatedAt:        createdAtOrNow(p.CreatedAt),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "shopify_product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
		}).
		Create(product).Error
	if err != nil {
		return nil, fmt.Errorf("upsert product: %w", err)
	}

	var out domain.Product
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND shopify_product_id = ?", []byte(tenantID), p.ShopifyProductID).
		First(&out).Error; err != nil {
		return nil, fmt.Errorf("reload product: %w", err)
	}
	return &out, nil
}

// List pages products in (created_at desc, id desc) order with a
// keyset cursor.
func (r *GormProductRepository) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Product, string, error) {
	take := clampLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", []byte(tenantID))

	anchorID, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if anchorID != 0 {
		var anchor domain.Product
		if err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND id = ?", []byte(tenantID), anchorID).
			First(&anchor).Error; err != nil {
			return nil, "", fmt.Errorf("resolve cursor: %w", err)
		}
		query = query.Scopes(keysetAfter(anchor.CreatedAt, anchor.ID))
	}

	var items []domain.Product
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(take + 1).
		Find(&items).Error; err != nil {
		return nil, "", fmt.Errorf("list products: %w", err)
	}

	nextCursor := ""
	if len(items) > take {
		items = items[:take]
		nextCursor = strconv.FormatUint(items[take-1].ID, 10)
	}
	return items, nextCursor, nil
}

// Count returns the number of products for the tenant, optionally
// restricted to rows created at or after createdSince.
func (r *GormProductRepository) Count(ctx context.Context, tenantID domain.TenantID, createdSince *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("tenant_id = ?", []byte(tenantID))
	if createdSince != nil {
		query = query.Where("created_at >= ?", *createdSince)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}
