package domain

import "time"

// Store holds the current Admin API credential for one shop domain.
// A domain has at most one active row; OAuth reinstall rotates the
// token in place and app/uninstalled deletes the row.
type Store struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	TenantID    TenantID  `gorm:"type:binary(16);not null;index" json:"tenant_id"`
	ShopDomain  string    `gorm:"size:255;not null;uniqueIndex" json:"shop_domain"`
	AccessToken string    `gorm:"size:255;not null" json:"-"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
