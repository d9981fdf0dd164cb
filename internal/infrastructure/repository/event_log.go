package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsight-backend/internal/domain"
	"shopsight-backend/internal/ports"
)

// GormEventLog implements the webhook dedup log. The unique index on
// (tenant_id, event_id) is the only dedup authority: the insert either
// lands or conflicts, and a conflict is the duplicate signal. There is
// no read-before-write, so concurrent redelivery of the same event is
// decided by the database.
type GormEventLog struct {
	db *gorm.DB
}

// NewGormEventLog creates the dedup log on the given handle.
func NewGormEventLog(db *gorm.DB) ports.EventLog {
	return &GormEventLog{db: db}
}

// Record inserts (tenant, eventID) if absent and reports whether the
// row was newly inserted.
func (l *GormEventLog) Record(ctx context.Context, tenantID domain.TenantID, eventID, eventType string) (bool, error) {
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.WebhookEvent{
			TenantID:  tenantID,
			EventID:   eventID,
			EventType: eventType,
		})
	if result.Error != nil {
		return false, fmt.Errorf("record webhook event: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
