// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file implements the conversation aggregation: the
// "top-1 per counterpart" query behind the conversation list.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
)

// conversationsSQL ranks a user's messages per counterpart with a window
// function and keeps only the newest row of each partition. Ties on
// created_at are broken by the higher id, both inside a partition and when
// ordering the final list, so the result is fully deterministic.
const conversationsSQL = `
SELECT t.other_user_id,
       u.username   AS other_username,
       t.content    AS last_message,
       t.id         AS last_message_id,
       t.created_at AS last_timestamp
FROM (
    SELECT m.id, m.content, m.created_at,
           CASE WHEN m.sender_id = @uid THEN m.recipient_id ELSE m.sender_id END AS other_user_id,
           ROW_NUMBER() OVER (
               PARTITION BY CASE WHEN m.sender_id = @uid THEN m.recipient_id ELSE m.sender_id END
               ORDER BY m.created_at DESC, m.id DESC
           ) AS rn
    FROM messages m
    WHERE m.sender_id = @uid OR m.recipient_id = @uid
) t
JOIN users u ON u.id = t.other_user_id
WHERE t.rn = 1
ORDER BY last_timestamp DESC, last_message_id DESC`

// ListConversations returns at most one entry per distinct counterpart of
// userID, each carrying that counterpart's most recent message, ordered by
// descending recency. Returns an empty slice when the user has no messages.
func ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	out := []domain.Conversation{}
	err := db.WithContext(ctx).
		Raw(conversationsSQL, map[string]any{"uid": userID}).
		Scan(&out).Error
	return out, err
}
