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

// GormCustomerRepository implements CustomerRepository over MySQL.
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a customer repository on the given
// handle.
func NewGormCustomerRepository(db *gorm.DB) ports.CustomerRepository {
	return &GormCustomerRepository{db: db}
}

// Upsert creates or updates the customer keyed by
// (tenant_id, shopify_customer_id). Fields absent from the payload are
// written as null, not rejected.
func (r *GormCustomerRepository) Upsert(ctx context.Context, tenantID domain.TenantID, p *domain.CustomerPayload) (*domain.Customer, error) {
	customer := &domain.Customer{
		TenantID:          tenantID,
		ShopifyCustomerID: p.ShopifyCustomerID,
		Email:             p.Email,
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		CreatedAt:         createdAtOrNow(p.CreatedAt),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "shopify_customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "first_name", "last_name", "updated_at"}),
		}).
		Create(customer).Error
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	var out domain.Customer
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND shopify_customer_id = ?", []byte(tenantID), p.ShopifyCustomerID).
		First(&out).Error; err != nil {
		return nil, fmt.Errorf("reload customer: %w", err)
	}
	return &out, nil
}

// List pages customers in (created_at desc, id desc) order with a
// keyset cursor.
func (r *GormCustomerRepository) List(ctx context.Context, tenantID domain.TenantID, params ports.ListParams) ([]domain.Customer, string, error) {
	take := clampLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Where("tenant_id = ?", []byte(tenantID)).
		Scopes(createdWindow(params))

	anchorID, err := parseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if anchorID != 0 {
		var anchor domain.Customer
		if err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND id = ?", []byte(tenantID), anchorID).
			First(&anchor).Error; err != nil {
			return nil, "", fmt.Errorf("resolve cursor: %w", err)
		}
		query = query.Scopes(keysetAfter(anchor.CreatedAt, anchor.ID))
	}

	var items []domain.Customer
	if err := query.
		Order("created_at DESC, id DESC").
		Limit(take + 1).
		Find(&items).Error; err != nil {
		return nil, "", fmt.Errorf("list customers: %w", err)
	}

	nextCursor := ""
	if len(items) > take {
		items = items[:take]
		nextCursor = strconv.FormatUint(items[take-1].ID, 10)
	}
	return items, nextCursor, nil
}

func createdAtOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now().UTC()
}

// Count returns the tenant's customer row count.
func (r *GormCustomerRepository) Count(ctx context.Context, tenantID domain.TenantID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("tenant_id = ?", []byte(tenantID)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return count, nil
}
