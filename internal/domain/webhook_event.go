package domain

import "time"

// WebhookEvent is the dedup log: one row per (tenant, external event
// id), inserted at most once. A conflicting insert means the event was
// already processed and business logic must be skipped.
type WebhookEvent struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	TenantID   TenantID  `gorm:"type:binary(16);not null;uniqueIndex:uniq_tenant_event,priority:1" json:"tenant_id"`
	EventID    string    `gorm:"size:128;not null;uniqueIndex:uniq_tenant_event,priority:2" json:"event_id"`
	EventType  string    `gorm:"size:64" json:"event_type"`
	ReceivedAt time.Time `gorm:"autoCreateTime" json:"received_at"`
}

// WebhookDelivery is an inbound webhook after signature verification:
// the topic, source shop, and exact raw payload bytes. It is what the
// dispatcher hands to topic handlers and what the event bus fans out.
type WebhookDelivery struct {
	Topic    string
	Shop     string
	TenantID TenantID
	EventID  string
	Payload  []byte
}
