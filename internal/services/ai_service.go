// Package services – AiService
//
// This file implements the per-user AI conversation log. One prompt/response
// round-trip is persisted as a single AiExchange row; the client-facing view
// is a flat turn sequence, reconstructed by a pure transform so it can be
// tested with synthetic rows, decoupled from storage.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/parleyhq/go-messenger-backend/internal/ai"
	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultHistoryLimit is the number of exchanges returned when the caller
	// does not specify one.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit bounds the history fetch.
	MaxHistoryLimit = 200
)

// AiService owns the AI exchange log and the completion round-trip.
type AiService struct {
	DB       *gorm.DB
	Provider ai.Provider

	// MaxPromptRunes caps prompts by rune length; 0 disables the cap.
	MaxPromptRunes int
}

// Chat validates the prompt, asks the provider for a completion, and persists
// exactly one exchange row on success. Provider failures surface as
// ErrProviderUnavailable and persist nothing; the provider is never retried
// here. Retry, if any, belongs to the transport layer.
func (s *AiService) Chat(ctx context.Context, userID, prompt string) (*domain.AiExchange, error) {
	tr := otel.Tracer("services/AiService")
	ctx, span := tr.Start(ctx, "Chat",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyContent
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	response, err := s.Provider.Complete(ctx, prompt)
	if err != nil {
		return nil, ErrProviderUnavailable
	}
	return repo.CreateExchange(ctx, s.DB, userID, prompt, response)
}

// History returns the user's reconstructed turn sequence: the limit most
// recent exchanges, re-ordered oldest first, each expanded into a user turn
// followed by an assistant turn. limit <= 0 falls back to DefaultHistoryLimit
// and is clamped to MaxHistoryLimit.
func (s *AiService) History(ctx context.Context, userID string, limit int) ([]domain.Turn, error) {
	tr := otel.Tracer("services/AiService")
	ctx, span := tr.Start(ctx, "History",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	rows, err := repo.ListRecentExchanges(ctx, s.DB, userID, limit)
	if err != nil {
		return nil, err
	}
	return ReconstructTurns(rows), nil
}

// Clear deletes every exchange owned by userID and returns the removed count.
func (s *AiService) Clear(ctx context.Context, userID string) (int64, error) {
	tr := otel.Tracer("services/AiService")
	ctx, span := tr.Start(ctx, "Clear",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.DeleteExchanges(ctx, s.DB, userID)
}

// ReconstructTurns expands exchange rows (given newest first, as fetched)
// into a chronological turn sequence: oldest round-trip first, each row
// contributing a user turn immediately followed by its assistant turn. The
// two turns of one exchange are never separated or interleaved with turns
// from another exchange.
func ReconstructTurns(newestFirst []domain.AiExchange) []domain.Turn {
	turns := make([]domain.Turn, 0, 2*len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		e := newestFirst[i]
		turns = append(turns,
			domain.Turn{Role: domain.RoleUser, Content: e.Message, CreatedAt: e.CreatedAt},
			domain.Turn{Role: domain.RoleAssistant, Content: e.Response, CreatedAt: e.CreatedAt},
		)
	}
	return turns
}
