// AI chat HTTP handlers.
//
// This file exposes the per-user AI conversation log:
//   - POST   /ai/chat     (send a prompt, get the assistant reply)
//   - GET    /ai/history  (reconstructed turn sequence, oldest first)
//   - DELETE /ai/history  (wipe the caller's log)
//
// The AI log is strictly private to each user. A provider outage never
// corrupts the log: when the upstream call fails nothing is persisted and the
// client receives 502.
package handlers

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/services"
	"github.com/parleyhq/go-messenger-backend/internal/utils"
)

//
// DTOs
//

// AiChatRequest is the JSON payload for one AI prompt.
type AiChatRequest struct {
	Prompt string `json:"prompt" binding:"required,min=1" example:"Summarize the last standup notes"`
}

// AiChatResponse carries the assistant reply for one prompt.
type AiChatResponse struct {
	Exchange *domain.AiExchange `json:"exchange"`
}

// AiHistoryResponse contains the reconstructed turn sequence, oldest first.
// Each persisted exchange expands to exactly two turns, user then assistant.
type AiHistoryResponse struct {
	Turns []domain.Turn `json:"turns"`
}

// AiClearResponse reports how many exchanges were deleted.
type AiClearResponse struct {
	Deleted int64 `json:"deleted"`
}

// discoverMaxPromptRunes inspects the concrete AiService for a configured
// prompt-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxPromptRunes(aiSvc AiService) int {
	const fallback = 4000
	if as, ok := aiSvc.(*services.AiService); ok {
		if as.MaxPromptRunes > 0 {
			return as.MaxPromptRunes
		}
	}
	return fallback
}

//
// Handlers
//

// AiChat godoc
// @ID          aiChat
// @Summary     Send a prompt to the AI assistant
// @Description Performs one completion round-trip and appends the exchange to
// @Description the caller's private log. Nothing is persisted when the
// @Description provider call fails.
// @Tags        AI
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.AiChatRequest  true  "Prompt payload"
//
// @Success     201  {object}  handlers.AiChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Provider unavailable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /ai/chat [post]
func (h *Handlers) AiChat(c *gin.Context) {
	var req AiChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
		return
	}

	prompt := sanitizeContent(req.Prompt)
	maxRunes := discoverMaxPromptRunes(h.aiSvc)
	if maxRunes > 0 && utf8.RuneCountInString(prompt) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("prompt too long: max %d runes", maxRunes))
		return
	}
	if prompt == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
		return
	}

	ex, err := h.aiSvc.Chat(c.Request.Context(), userID(c), prompt)
	switch err {
	case nil:
		ok(c, http.StatusCreated, AiChatResponse{Exchange: ex})
	case services.ErrEmptyContent:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
	case services.ErrTooLong:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("prompt too long: max %d runes", maxRunes))
	case services.ErrProviderUnavailable:
		fail(c, http.StatusBadGateway, ErrCodeUpstream, "assistant is temporarily unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not complete chat")
	}
}

// AiHistory godoc
// @ID          aiHistory
// @Summary     Get the caller's AI conversation history
// @Description Returns the most recent exchanges expanded into alternating
// @Description user/assistant turns, oldest first.
// @Tags        AI
// @Produce     json
//
// @Param       Authorization  header  string  true   "Bearer token"
// @Param       limit          query   int     false  "Max exchanges to expand (default 50, cap 200)"
//
// @Success     200  {object}  handlers.AiHistoryResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /ai/history [get]
func (h *Handlers) AiHistory(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), services.DefaultHistoryLimit)

	turns, err := h.aiSvc.History(c.Request.Context(), userID(c), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load history")
		return
	}
	ok(c, http.StatusOK, AiHistoryResponse{Turns: turns})
}

// AiClearHistory godoc
// @ID          aiClearHistory
// @Summary     Delete the caller's AI conversation history
// @Tags        AI
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object}  handlers.AiClearResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /ai/history [delete]
func (h *Handlers) AiClearHistory(c *gin.Context) {
	n, err := h.aiSvc.Clear(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not clear history")
		return
	}
	ok(c, http.StatusOK, AiClearResponse{Deleted: n})
}
