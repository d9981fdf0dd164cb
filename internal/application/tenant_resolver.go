package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// ErrStoreNotFound is returned when an operation needs stored Admin API
// credentials and the shop has none.
var ErrStoreNotFound = errors.New("store not found")

// TenantResolver maps a shop domain to its tenant. The Store row is the
// authority when the shop has completed OAuth; otherwise the tenant id
// is derived deterministically from the domain, so webhooks arriving
// before (or without) an install still land in a stable tenant.
type TenantResolver struct {
	stores  ports.StoreRepository
	tenants ports.TenantRepository
	logger  zerolog.Logger
}

func NewTenantResolver(stores ports.StoreRepository, tenants ports.TenantRepository, logger zerolog.Logger) *TenantResolver {
	return &TenantResolver{stores: stores, tenants: tenants, logger: logger}
}

// Resolve returns the tenant id for a shop domain, creating the tenant
// row on first contact.
func (r *TenantResolver) Resolve(ctx context.Context, shopDomain string) (domain.TenantID, error) {
	if shopDomain == "" {
		return nil, fmt.Errorf("empty shop domain")
	}

	store, err := r.stores.GetByDomain(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("resolve tenant for %s: %w", shopDomain, err)
	}
	if store != nil {
		return store.TenantID, nil
	}

	tenantID := domain.TenantIDFromShopDomain(shopDomain)
	if err := r.tenants.Ensure(ctx, tenantID, shopDomain); err != nil {
		return nil, fmt.Errorf("ensure tenant for %s: %w", shopDomain, err)
	}

	r.logger.Debug().
		Str("shop", shopDomain).
		Str("tenantId", tenantID.Hex()).
		Msg("Resolved tenant from derived id")
	return tenantID, nil
}

// ResolveStore returns the stored credentials for a shop, or
// ErrStoreNotFound when the shop never installed.
func (r *TenantResolver) ResolveStore(ctx context.Context, shopDomain string) (*domain.Store, error) {
	store, err := r.stores.GetByDomain(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("resolve store for %s: %w", shopDomain, err)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreNotFound, shopDomain)
	}
	return store, nil
}
