package domain

import "time"

// Customer mirrors a Shopify customer, keyed by (tenant, external
// customer id). Fields absent from the source payload stay null.
type Customer struct {
	ID                uint64    `gorm:"primaryKey" json:"id"`
	TenantID          TenantID  `gorm:"type:binary(16);not null;uniqueIndex:uniq_tenant_customer,priority:1" json:"tenant_id"`
	ShopifyCustomerID int64     `gorm:"not null;uniqueIndex:uniq_tenant_customer,priority:2" json:"shopify_customer_id"`
	Email             *string   `gorm:"size:255" json:"email"`
	FirstName         *string   `gorm:"size:100" json:"first_name"`
	LastName          *string   `gorm:"size:100" json:"last_name"`
	CreatedAt         time.Time `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
