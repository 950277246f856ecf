// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns direct messages and the derived conversation list. It validates
// content, enforces the self-message and recipient-existence rules, and
// delegates the authorization-sensitive mutations (mark-read, delete) to the
// repository's conditional statements, so absent-vs-unauthorized stays merged.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// the acting user and counterpart identifiers.
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

// MessageService coordinates direct-message persistence and aggregation.
type MessageService struct {
	DB *gorm.DB

	// MaxContentRunes caps message content by rune length; 0 disables the cap.
	MaxContentRunes int
}

// Send validates and persists a direct message from sender to recipient with
// is_read=false. Fails with ErrSelfMessage when sender == recipient and with
// ErrRecipientNotFound when the recipient does not exist.
func (s *MessageService) Send(ctx context.Context, senderID, recipientID, content string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("sender.id", senderID),
			attribute.String("recipient.id", recipientID),
		),
	)
	defer span.End()

	// Self-send is rejected before any content inspection so it fails the
	// same way for every payload, valid or not.
	if senderID == recipientID {
		return nil, ErrSelfMessage
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxContentRunes > 0 && utf8.RuneCountInString(content) > s.MaxContentRunes {
		return nil, ErrTooLong
	}

	exists, err := repo.UserExists(ctx, s.DB, recipientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRecipientNotFound
	}

	return repo.CreateMessage(ctx, s.DB, senderID, recipientID, content)
}

// Thread returns the full message history of the unordered pair
// {userID, otherID}, oldest first, with display names joined in.
func (s *MessageService) Thread(ctx context.Context, userID, otherID string) ([]domain.ThreadMessage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Thread",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("other.id", otherID),
		),
	)
	defer span.End()

	return repo.ListThread(ctx, s.DB, userID, otherID)
}

// ListConversations returns one entry per distinct counterpart, each carrying
// the most recent message, ordered by descending recency (ties: higher
// message id wins).
func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListConversations",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListConversations(ctx, s.DB, userID)
}

// MarkRead flips is_read on a message, permitted only to its recipient.
// Absent message and non-recipient caller both yield ErrNotFoundOrUnauthorized.
// Losing a concurrent race is the same benign outcome, never retried.
func (s *MessageService) MarkRead(ctx context.Context, actingUser string, messageID int64) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("user.id", actingUser),
			attribute.Int64("message.id", messageID),
		),
	)
	defer span.End()

	m, err := repo.MarkMessageRead(ctx, s.DB, messageID, actingUser)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFoundOrUnauthorized
	}
	return m, err
}

// Delete hard-deletes a message, permitted only to its sender. Absent message
// and non-sender caller both yield ErrNotFoundOrUnauthorized.
func (s *MessageService) Delete(ctx context.Context, actingUser string, messageID int64) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("user.id", actingUser),
			attribute.Int64("message.id", messageID),
		),
	)
	defer span.End()

	err := repo.DeleteMessage(ctx, s.DB, messageID, actingUser)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFoundOrUnauthorized
	}
	return err
}
