// Package handlers provides HTTP handler implementations for the public API.
//
// This file declares the service contracts consumed by the HTTP layer and the
// Handlers aggregate that binds them. Handlers are transport-thin: they
// validate input, call application services, and translate results into HTTP
// responses. Depending on abstract interfaces keeps transport concerns
// separate from business logic and makes handlers testable with fakes.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/http/middleware"
)

// AuthService defines registration and login operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AuthService interface {
	// Register creates a new account with a hashed password.
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	// Login exchanges credentials for a signed token.
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// MessageService defines direct-message operations.
type MessageService interface {
	// Send persists one direct message from the acting user.
	Send(ctx context.Context, senderID, recipientID, content string) (*domain.Message, error)
	// Thread returns the full pair history, oldest first.
	Thread(ctx context.Context, userID, otherID string) ([]domain.ThreadMessage, error)
	// ListConversations returns the most recent message per counterpart.
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	// MarkRead flips is_read; recipient only.
	MarkRead(ctx context.Context, actingUser string, messageID int64) (*domain.Message, error)
	// Delete removes a message; sender only.
	Delete(ctx context.Context, actingUser string, messageID int64) error
}

// GroupService defines group, membership, and group-message operations.
// Every operation is gated on the acting user's membership.
type GroupService interface {
	Create(ctx context.Context, creatorID, name, description string) (*domain.Group, error)
	List(ctx context.Context, userID string) ([]domain.Group, error)
	AddMember(ctx context.Context, groupID, requesterID, targetID string) error
	Members(ctx context.Context, groupID, requesterID string) ([]domain.Member, error)
	Post(ctx context.Context, groupID, senderID, content string) (*domain.GroupMessage, error)
	Messages(ctx context.Context, groupID, requesterID string) ([]domain.GroupThreadMessage, error)
}

// AiService defines the AI conversation log operations.
type AiService interface {
	// Chat performs one completion round-trip and persists it.
	Chat(ctx context.Context, userID, prompt string) (*domain.AiExchange, error)
	// History returns the reconstructed turn sequence, oldest first.
	History(ctx context.Context, userID string, limit int) ([]domain.Turn, error)
	// Clear deletes the caller's whole exchange log.
	Clear(ctx context.Context, userID string) (int64, error)
}

// Handlers groups the HTTP endpoints for auth, messages, groups, and AI chat.
type Handlers struct {
	authSvc  AuthService
	msgSvc   MessageService
	groupSvc GroupService
	aiSvc    AiService

	// IdempotencyTTL bounds how long a recorded send can be replayed.
	// New sets a 24h default; the router overrides it from config.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(authSvc AuthService, msgSvc MessageService, groupSvc GroupService, aiSvc AiService) *Handlers {
	return &Handlers{
		authSvc:        authSvc,
		msgSvc:         msgSvc,
		groupSvc:       groupSvc,
		aiSvc:          aiSvc,
		IdempotencyTTL: defaultIdempotencyTTL,
	}
}

// userID extracts the authenticated user id from the Gin context (set by the
// auth middleware). If absent, it falls back to the "X-User-ID" header, which
// tests use to exercise handlers without minting tokens.
func userID(c *gin.Context) string {
	if uid, ok := middleware.UserID(c); ok {
		return uid
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}
