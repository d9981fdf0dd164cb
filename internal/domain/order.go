package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the local classification of an order. The external
// financial_status string collapses into two buckets: "paid" maps to
// fulfilled, everything else to pending.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

// ParseOrderStatus validates a status filter value.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusFulfilled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// OrderStatusFromFinancial maps Shopify's financial_status into the
// local enum. Lossy on purpose.
func OrderStatusFromFinancial(financialStatus string) OrderStatus {
	if financialStatus == "paid" {
		return OrderStatusFulfilled
	}
	return OrderStatusPending
}

// Order mirrors a Shopify order, keyed by (tenant, external order id).
type Order struct {
	ID                uint64          `gorm:"primaryKey" json:"id"`
	TenantID          TenantID        `gorm:"type:binary(16);not null;uniqueIndex:uniq_tenant_order,priority:1" json:"tenant_id"`
	ShopifyOrderID    int64           `gorm:"not null;uniqueIndex:uniq_tenant_order,priority:2" json:"shopify_order_id"`
	CustomerShopifyID *int64          `json:"customer_shopify_id"`
	Status            OrderStatus     `gorm:"type:enum('pending','fulfilled');not null;default:'pending'" json:"status"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_price"`
	Currency          string          `gorm:"size:3;not null;default:'USD'" json:"currency"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
