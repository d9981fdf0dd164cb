package repository

import (
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"shopsight-backend/internal/ports"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func parseCursor(cursor string) (uint64, error) {
	if cursor == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor %q: %w", cursor, err)
	}
	return id, nil
}

// keysetAfter filters to rows strictly after the anchor in
// (created_at desc, id desc) order. The anchor is the last row of the
// previous page, so pages stay stable under concurrent inserts.
func keysetAfter(anchorCreatedAt time.Time, anchorID uint64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			anchorCreatedAt, anchorCreatedAt, anchorID,
		)
	}
}

func createdWindow(params ports.ListParams) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.From != nil {
			db = db.Where("created_at >= ?", *params.From)
		}
		if params.To != nil {
			db = db.Where("created_at <= ?", *params.To)
		}
		return db
	}
}
