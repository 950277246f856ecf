// Package services – GroupService
//
// This file implements GroupService and the membership guard. Every group
// operation first evaluates the guard against the ACTING user; adding a
// member checks the requester's membership, never the target's. The guard is
// the single authorization predicate for all group reads and writes; no
// call site re-implements the check.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxGroupNameRunes = 255

// GroupService owns groups, memberships, and group messages.
type GroupService struct {
	DB *gorm.DB

	// MaxContentRunes caps group message content; 0 disables the cap.
	MaxContentRunes int
}

// requireMember resolves the group and evaluates the membership guard for
// userID. Returns ErrGroupNotFound when the group is absent and ErrNotMember
// when the acting user holds no membership.
func (s *GroupService) requireMember(ctx context.Context, groupID, userID string) error {
	if _, err := repo.GetGroup(ctx, s.DB, groupID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	member, err := repo.IsMember(ctx, s.DB, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return nil
}

// Create makes a new group with creatorID as its first member. The group row
// and the creator's membership are written in one transaction.
func (s *GroupService) Create(ctx context.Context, creatorID, name, description string) (*domain.Group, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", creatorID)),
	)
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupNameRunes {
		return nil, ErrInvalidInput
	}
	return repo.CreateGroup(ctx, s.DB, name, strings.TrimSpace(description), creatorID)
}

// List returns every group the user belongs to, most recent first.
func (s *GroupService) List(ctx context.Context, userID string) ([]domain.Group, error) {
	return repo.ListGroupsForUser(ctx, s.DB, userID)
}

// AddMember adds targetID to the group on behalf of requesterID. Only the
// requester must already be a member; the target must merely exist. Adding an
// existing member is a silent no-op.
func (s *GroupService) AddMember(ctx context.Context, groupID, requesterID, targetID string) error {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "AddMember",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.String("user.id", requesterID),
			attribute.String("target.id", targetID),
		),
	)
	defer span.End()

	if err := s.requireMember(ctx, groupID, requesterID); err != nil {
		return err
	}
	exists, err := repo.UserExists(ctx, s.DB, targetID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return repo.AddMember(ctx, s.DB, groupID, targetID)
}

// Members lists the group's members with usernames. Guarded.
func (s *GroupService) Members(ctx context.Context, groupID, requesterID string) ([]domain.Member, error) {
	if err := s.requireMember(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	return repo.ListMembers(ctx, s.DB, groupID)
}

// Post appends a message to the group. Guarded against the sender.
func (s *GroupService) Post(ctx context.Context, groupID, senderID, content string) (*domain.GroupMessage, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.String("user.id", senderID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrTooLong
	}
	if err := s.requireMember(ctx, groupID, senderID); err != nil {
		return nil, err
	}
	return repo.CreateGroupMessage(ctx, s.DB, groupID, senderID, content)
}

// Messages lists the group's messages oldest first, with sender usernames.
// Guarded against the requester.
func (s *GroupService) Messages(ctx context.Context, groupID, requesterID string) ([]domain.GroupThreadMessage, error) {
	tr := otel.Tracer("services/GroupService")
	ctx, span := tr.Start(ctx, "Messages",
		trace.WithAttributes(
			attribute.String("group.id", groupID),
			attribute.String("user.id", requesterID),
		),
	)
	defer span.End()

	if err := s.requireMember(ctx, groupID, requesterID); err != nil {
		return nil, err
	}
	return repo.ListGroupMessages(ctx, s.DB, groupID)
}
