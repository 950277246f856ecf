// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for groups,
// memberships, and group messages.
//
// Membership is the only authorization credential for group operations; the
// IsMember predicate here is the storage half of that guard, evaluated by the
// service layer before every group read or write.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
)

// CreateGroup inserts a group row and the creator's membership in one
// transaction. A group must never exist without its creator as a member,
// so both writes succeed together or neither persists.
func CreateGroup(ctx context.Context, db *gorm.DB, name, description, creatorID string) (*domain.Group, error) {
	now := time.Now().UTC()
	g := &domain.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedBy:   creatorID,
		CreatedAt:   now,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		return tx.Create(&domain.GroupMembership{
			GroupID:  g.ID,
			UserID:   creatorID,
			JoinedAt: now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetGroup fetches a group by id, or ErrNotFound if missing.
func GetGroup(ctx context.Context, db *gorm.DB, id string) (*domain.Group, error) {
	var g domain.Group
	err := db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// IsMember reports whether userID holds a membership row for groupID.
func IsMember(ctx context.Context, db *gorm.DB, groupID, userID string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.GroupMembership{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	return n > 0, err
}

// AddMember inserts a membership row for userID. The insert is idempotent:
// ON CONFLICT DO NOTHING makes adding an already-present member a silent
// no-op, and two concurrent adds of the same user resolve to one row.
func AddMember(ctx context.Context, db *gorm.DB, groupID, userID string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.GroupMembership{
			GroupID:  groupID,
			UserID:   userID,
			JoinedAt: time.Now().UTC(),
		}).Error
}

// ListMembers returns the group's memberships with usernames joined in,
// ordered by join time then user id for determinism.
func ListMembers(ctx context.Context, db *gorm.DB, groupID string) ([]domain.Member, error) {
	var out []domain.Member
	err := db.WithContext(ctx).
		Table("group_memberships AS gm").
		Select("gm.user_id, u.username, gm.joined_at").
		Joins("JOIN users u ON u.id = gm.user_id").
		Where("gm.group_id = ?", groupID).
		Order("gm.joined_at ASC, gm.user_id ASC").
		Scan(&out).Error
	return out, err
}

// ListGroupsForUser returns every group the user is a member of, most
// recently created first.
func ListGroupsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Group, error) {
	var out []domain.Group
	err := db.WithContext(ctx).
		Table("groups AS g").
		Select("g.*").
		Joins("JOIN group_memberships gm ON gm.group_id = g.id").
		Where("gm.user_id = ?", userID).
		Order("g.created_at DESC, g.id DESC").
		Scan(&out).Error
	return out, err
}

// CreateGroupMessage appends a message to a group. The membership check is
// the service layer's responsibility; this is a plain insert.
func CreateGroupMessage(ctx context.Context, db *gorm.DB, groupID, senderID, content string) (*domain.GroupMessage, error) {
	m := &domain.GroupMessage{
		GroupID:   groupID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// GetGroupMessage fetches one group message by id, or ErrNotFound.
func GetGroupMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.GroupMessage, error) {
	var m domain.GroupMessage
	err := db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListGroupMessages returns all messages of a group ascending
// (created_at, id), with sender usernames joined in.
func ListGroupMessages(ctx context.Context, db *gorm.DB, groupID string) ([]domain.GroupThreadMessage, error) {
	var out []domain.GroupThreadMessage
	err := db.WithContext(ctx).
		Table("group_messages AS gm").
		Select("gm.id, gm.group_id, gm.sender_id, u.username AS sender_username, gm.content, gm.created_at").
		Joins("JOIN users u ON u.id = gm.sender_id").
		Where("gm.group_id = ?", groupID).
		Order("gm.created_at ASC, gm.id ASC").
		Scan(&out).Error
	return out, err
}
