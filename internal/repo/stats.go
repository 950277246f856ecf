// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (ETag generation) on the polled list endpoints.
// Clients re-fetch lists on a fixed cadence; these aggregates let unchanged
// polls resolve to 304 without materializing the list.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
)

// threadStats holds the aggregate shape scanned by the stats queries.
type threadStats struct {
	Total int64
	MaxID int64
	MaxAt time.Time
}

// MessagesStats returns aggregate metadata over every direct message userID
// sent or received: row count, the greatest message id, and the greatest
// created_at. When the user has no messages, count is 0 and maxCreatedAt nil.
//
// The (count, max id) pair changes on every send and delete, which makes it
// a cheap freshness token for the conversation list.
func MessagesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxID int64, maxCreatedAt *time.Time, err error) {
	var row threadStats
	err = db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("COUNT(*) AS total, COALESCE(MAX(id), 0) AS max_id").
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Scan(&row).Error
	if err != nil || row.Total == 0 {
		return 0, 0, nil, err
	}

	// Get latest created_at separately (avoid MAX() -> TEXT in SQLite).
	var ts struct{ CreatedAt time.Time }
	err = db.WithContext(ctx).
		Model(&domain.Message{}).
		Select("created_at").
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Scan(&ts).Error
	if err != nil {
		return 0, 0, nil, err
	}
	return row.Total, row.MaxID, &ts.CreatedAt, nil
}

// GroupMessagesStats returns the same aggregate metadata scoped to one group.
func GroupMessagesStats(ctx context.Context, db *gorm.DB, groupID string) (count int64, maxID int64, maxCreatedAt *time.Time, err error) {
	var row threadStats
	err = db.WithContext(ctx).
		Model(&domain.GroupMessage{}).
		Select("COUNT(*) AS total, COALESCE(MAX(id), 0) AS max_id").
		Where("group_id = ?", groupID).
		Scan(&row).Error
	if err != nil || row.Total == 0 {
		return 0, 0, nil, err
	}

	var ts struct{ CreatedAt time.Time }
	err = db.WithContext(ctx).
		Model(&domain.GroupMessage{}).
		Select("created_at").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Limit(1).
		Scan(&ts).Error
	if err != nil {
		return 0, 0, nil, err
	}
	return row.Total, row.MaxID, &ts.CreatedAt, nil
}
