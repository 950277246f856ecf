// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the AiExchange
// model: one row per prompt/response round-trip.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
)

// CreateExchange appends one prompt/response round-trip for userID.
func CreateExchange(ctx context.Context, db *gorm.DB, userID, message, response string) (*domain.AiExchange, error) {
	e := &domain.AiExchange{
		UserID:    userID,
		Message:   message,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// ListRecentExchanges returns the limit most recent exchanges for userID,
// newest first (created_at DESC, id DESC). The caller reverses the slice for
// chronological display.
func ListRecentExchanges(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.AiExchange, error) {
	var out []domain.AiExchange
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// DeleteExchanges removes every exchange owned by userID and reports how many
// rows were deleted. Irreversible.
func DeleteExchanges(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.AiExchange{})
	return res.RowsAffected, res.Error
}
