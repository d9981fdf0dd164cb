package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// GormStoreRepository implements StoreRepository over MySQL.
type GormStoreRepository struct {
	db *gorm.DB
}

// NewGormStoreRepository creates a store repository on the given
// handle.
func NewGormStoreRepository(db *gorm.DB) ports.StoreRepository {
	return &GormStoreRepository{db: db}
}

// Upsert writes the store row, rotating the credential and tenant
// binding in place when the domain already exists.
func (r *GormStoreRepository) Upsert(ctx context.Context, store *domain.Store) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "shop_domain"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "tenant_id", "updated_at"}),
		}).
		Create(store).Error
	if err != nil {
		return fmt.Errorf("upsert store: %w", err)
	}
	return nil
}

// GetByDomain returns the store for a shop domain, or nil when the
// shop was never installed.
func (r *GormStoreRepository) GetByDomain(ctx context.Context, shopDomain string) (*domain.Store, error) {
	var store domain.Store
	err := r.db.WithContext(ctx).
		Where("shop_domain = ?", shopDomain).
		First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return &store, nil
}

// DeleteByDomain removes the store row on uninstall.
func (r *GormStoreRepository) DeleteByDomain(ctx context.Context, shopDomain string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("shop_domain = ?", shopDomain).
		Delete(&domain.Store{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete store: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// GormTenantRepository implements TenantRepository over MySQL.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a tenant repository on the given
// handle.
func NewGormTenantRepository(db *gorm.DB) ports.TenantRepository {
	return &GormTenantRepository{db: db}
}

// Ensure inserts the tenant if absent; tenants are immutable so an
// existing row is never touched.
func (r *GormTenantRepository) Ensure(ctx context.Context, id domain.TenantID, name string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Tenant{ID: id, Name: name}).Error
	if err != nil {
		return fmt.Errorf("ensure tenant: %w", err)
	}
	return nil
}
