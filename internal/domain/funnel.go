package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is a funnel-stage entity keyed by (tenant, cart token).
// Volatile: reset endpoints delete these wholesale.
type Cart struct {
	ID         uint64          `gorm:"primaryKey" json:"id"`
	TenantID   TenantID        `gorm:"type:binary(16);not null;uniqueIndex:uniq_tenant_cart,priority:1" json:"tenant_id"`
	CartToken  string          `gorm:"size:128;not null;uniqueIndex:uniq_tenant_cart,priority:2" json:"cart_token"`
	Currency   string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_price"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Checkout is a funnel-stage entity keyed by (tenant, external
// checkout id). CompletedAt is set once the checkout converts.
type Checkout struct {
	ID                uint64          `gorm:"primaryKey" json:"id"`
	TenantID          TenantID        `gorm:"type:binary(16);not null;uniqueIndex:uniq_tenant_checkout,priority:1" json:"tenant_id"`
	ShopifyCheckoutID int64           `gorm:"not null;uniqueIndex:uniq_tenant_checkout,priority:2" json:"shopify_checkout_id"`
	Currency          string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_price"`
	CompletedAt       *time.Time      `json:"completed_at"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
