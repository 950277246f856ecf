// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for direct messages.
//
// Authorization-sensitive mutations (mark-read, delete) are single conditional
// statements: the ownership predicate lives in the WHERE clause, so a race
// loser simply sees zero affected rows. Callers cannot tell "absent" from
// "not yours"; both surface as ErrNotFound.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
)

// CreateMessage inserts a new unread direct message row.
func CreateMessage(ctx context.Context, db *gorm.DB, senderID, recipientID, content string) (*domain.Message, error) {
	m := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListThread returns every message of the unordered pair {userA, userB},
// ascending (created_at, id), with both endpoints' usernames joined in.
// No implicit limit is applied.
func ListThread(ctx context.Context, db *gorm.DB, userA, userB string) ([]domain.ThreadMessage, error) {
	var out []domain.ThreadMessage
	err := db.WithContext(ctx).
		Table("messages AS m").
		Select(`m.id, m.sender_id, s.username AS sender_username,
			m.recipient_id, r.username AS recipient_username,
			m.content, m.is_read, m.created_at`).
		Joins("JOIN users s ON s.id = m.sender_id").
		Joins("JOIN users r ON r.id = m.recipient_id").
		Where("(m.sender_id = ? AND m.recipient_id = ?) OR (m.sender_id = ? AND m.recipient_id = ?)",
			userA, userB, userB, userA).
		Order("m.created_at ASC, m.id ASC").
		Scan(&out).Error
	return out, err
}

// GetMessage fetches a direct message by id.
func GetMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkMessageRead flips is_read to true, but only when actingUser is the
// recipient. Zero affected rows (message absent, or caller not the recipient,
// which are deliberately indistinguishable) yields ErrNotFound.
//
// The flip is monotonic: a second mark-read by the recipient still matches
// the WHERE clause and remains a no-op success.
func MarkMessageRead(ctx context.Context, db *gorm.DB, id int64, actingUser string) (*domain.Message, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("id = ? AND recipient_id = ?", id, actingUser).
		Update("is_read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return GetMessage(ctx, db, id)
}

// DeleteMessage hard-deletes a message, but only when actingUser is the
// sender. Zero affected rows yields ErrNotFound (absent and not-owner are
// deliberately indistinguishable).
func DeleteMessage(ctx context.Context, db *gorm.DB, id int64, actingUser string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND sender_id = ?", id, actingUser).
		Delete(&domain.Message{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
