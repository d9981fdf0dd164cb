package domain

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TenantID is the opaque 16-byte identifier every persisted row is
// scoped by. It is stored as binary(16).
type TenantID []byte

// TenantIDFromShopDomain derives a deterministic tenant id from a shop
// domain: SHA-256 of the domain truncated to 16 bytes. Used as the
// bootstrap identity for shops that have no Store row yet; the same
// domain always yields the same id.
func TenantIDFromShopDomain(shopDomain string) TenantID {
	sum := sha256.Sum256([]byte(shopDomain))
	return TenantID(sum[:16])
}

// ParseTenantID accepts a 32-char hex string (dashes allowed) and
// returns the 16-byte id.
func ParseTenantID(s string) (TenantID, error) {
	clean := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			clean = append(clean, s[i])
		}
	}
	raw, err := hex.DecodeString(string(clean))
	if err != nil {
		return nil, fmt.Errorf("invalid tenant id: %w", err)
	}
	if len(raw) != 16 {
		return nil, fmt.Errorf("tenant id must be 16 bytes, got %d", len(raw))
	}
	return TenantID(raw), nil
}

// Hex returns the lowercase hex form used in logs and responses.
func (id TenantID) Hex() string {
	return hex.EncodeToString(id)
}

// Equal reports whether two tenant ids are byte-identical.
func (id TenantID) Equal(other TenantID) bool {
	return bytes.Equal(id, other)
}

// Tenant is an isolated store context. Created on first OAuth install
// or first webhook for an unseen shop domain, immutable afterwards.
type Tenant struct {
	ID        TenantID  `gorm:"type:binary(16);primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type contextKey string

const (
	tenantIDKey   contextKey = "tenant_id"
	shopDomainKey contextKey = "shop_domain"
)

// WithTenantID returns a context carrying the tenant id.
func WithTenantID(ctx context.Context, id TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey, id)
}

// TenantIDFromContext extracts the tenant id, or nil when absent.
func TenantIDFromContext(ctx context.Context) TenantID {
	id, _ := ctx.Value(tenantIDKey).(TenantID)
	return id
}

// WithShopDomain returns a context carrying the source shop domain.
func WithShopDomain(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopDomainKey, shop)
}

// ShopDomainFromContext extracts the shop domain, or "" when absent.
func ShopDomainFromContext(ctx context.Context) string {
	shop, _ := ctx.Value(shopDomainKey).(string)
	return shop
}
