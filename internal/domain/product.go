package domain

import "time"

// Product mirrors a Shopify product, keyed by (tenant, external
// product id).
type Product struct {
	ID               uint64    `gorm:"primaryKey" json:"id"`
	TenantID         TenantID  `gorm:"type:binary(16);not null;uniqueIndex:uniq_tenant_product,priority:1" json:"tenant_id"`
	ShopifyProductID int64     `gorm:"not null;uniqueIndex:uniq_tenant_product,priority:2" json:"shopify_product_id"`
	Title            string    `gorm:"size:255;not null;default:'Untitled'" json:"title"`
	CreatedAt        time.Time `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
