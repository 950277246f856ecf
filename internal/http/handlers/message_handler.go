// Direct-message HTTP handlers.
//
// This file exposes REST endpoints for one-to-one messaging:
//   - POST   /messages                          (send a direct message)
//   - GET    /conversations                     (one entry per counterpart)
//   - GET    /conversations/{userID}/messages   (full pair history)
//   - PUT    /messages/{id}/read                (recipient marks as read)
//   - DELETE /messages/{id}                     (sender deletes)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// send exists for (user, recipient, key), the handler returns the recorded
// message and sets `Idempotency-Replayed: true` instead of sending again.
package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/http/middleware"
	"github.com/parleyhq/go-messenger-backend/internal/repo"
	"github.com/parleyhq/go-messenger-backend/internal/services"
)

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a direct message.
//
// Content is normalized by the handler (line endings and excessive blank
// lines) before being passed to the service layer. The service also enforces
// a maximum rune count, configurable on MessageService.
type SendMessageRequest struct {
	// RecipientID is the receiving user's id. Must differ from the sender.
	RecipientID string `json:"recipient_id" binding:"required" example:"7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab"`
	// Content is the message body. It must be non-empty.
	Content string `json:"content" binding:"required,min=1" example:"Lunch at noon?"`
}

// SendMessageResponse is the JSON envelope for a newly created message.
type SendMessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ConversationsResponse contains the caller's conversation summaries, one per
// counterpart, newest first.
type ConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

// ThreadResponse contains the full message history of one user pair, oldest
// first.
type ThreadResponse struct {
	Messages []domain.ThreadMessage `json:"messages"`
}

//
// Helpers
//

// defaultIdempotencyTTL is the replay window used when none is configured.
const defaultIdempotencyTTL = 24 * time.Hour

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxContentRunes inspects the concrete MessageService for a
// configured content-length limit. If unavailable, it returns a conservative
// fallback.
func discoverMaxContentRunes(msgSvc MessageService) int {
	const fallback = 4000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxContentRunes > 0 {
			return ms.MaxContentRunes
		}
	}
	return fallback
}

// messageID parses the {id} path parameter. Direct-message ids are
// monotonically increasing integers.
func messageID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a positive integer")
		return 0, false
	}
	return id, true
}

// dmScope is the idempotency scope for direct sends to one recipient.
func dmScope(recipientID string) string { return "dm:" + recipientID }

//
// Handlers
//

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a direct message
// @Description Sends one direct message to another user.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  true   "Bearer token"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.SendMessageResponse  "Created message"
// @Failure     400  {object}  handlers.ErrorResponse        "Bad request / self message"
// @Failure     404  {object}  handlers.ErrorResponse        "Recipient not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id and content required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	content := sanitizeContent(req.Content)
	maxRunes := discoverMaxContentRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)
	recipient := strings.TrimSpace(req.RecipientID)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, dmScope(recipient), idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(ctx, svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, SendMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	// Normal processing (service has a second guard for length).
	m, err := h.msgSvc.Send(ctx, currentUser, recipient, content)
	if err != nil {
		switch err {
		case services.ErrSelfMessage:
			fail(c, http.StatusBadRequest, ErrCodeSelfMessage, "cannot send a message to yourself")
		case services.ErrRecipientNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipient not found")
		case services.ErrTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		case services.ErrEmptyContent:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "could not send message")
		}
		return
	}

	// Idempotency (store path) – best effort; a race with a concurrent retry
	// surfaces as ErrDuplicate and is ignored.
	if idemKey != "" {
		if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, dmScope(recipient), idemKey,
				m.ID, http.StatusCreated, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusCreated, SendMessageResponse{Message: m})
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversation summaries
// @Description Returns the most recent message per counterpart, newest first.
// @Description Supports conditional requests: pass If-None-Match with a prior ETag to receive 304 when nothing changed.
// @Tags        Messages
// @Produce     json
//
// @Param       Authorization  header  string  true   "Bearer token"
// @Param       If-None-Match  header  string  false  "Previously returned ETag"
//
// @Success     200  {object}  handlers.ConversationsResponse
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	// Cheap freshness probe before materializing the list. Polling clients
	// re-fetch on a fixed cadence; unchanged polls short-circuit to 304.
	if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc && svc.DB != nil {
		if count, maxID, maxAt, err := repo.MessagesStats(ctx, svc.DB, currentUser); err == nil {
			var ts int64
			if maxAt != nil {
				ts = maxAt.UTC().Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d:%d"`, currentUser, count, maxID, ts)
			c.Header("ETag", etag)
			c.Header("Cache-Control", "private, max-age=0, must-revalidate")
			if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	convs, err := h.msgSvc.ListConversations(ctx, currentUser)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list conversations")
		return
	}
	ok(c, http.StatusOK, ConversationsResponse{Conversations: convs})
}

// GetThread godoc
// @ID          getThread
// @Summary     Get the message history with one user
// @Description Returns every message exchanged between the caller and {userID}, oldest first.
// @Tags        Messages
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       userID         path    string  true  "Counterpart user ID"  format(uuid)
//
// @Success     200  {object}  handlers.ThreadResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{userID}/messages [get]
func (h *Handlers) GetThread(c *gin.Context) {
	currentUser := userID(c)
	other := c.Param("userID")

	msgs, err := h.msgSvc.Thread(c.Request.Context(), currentUser, other)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load thread")
		return
	}
	ok(c, http.StatusOK, ThreadResponse{Messages: msgs})
}

// MarkMessageRead godoc
// @ID          markMessageRead
// @Summary     Mark a direct message as read
// @Description Only the recipient may mark a message as read. A missing message
// @Description and someone else's message are indistinguishable to the caller.
// @Tags        Messages
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    int     true  "Message ID"
//
// @Success     200  {object}  handlers.SendMessageResponse  "Updated message"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages/{id}/read [put]
func (h *Handlers) MarkMessageRead(c *gin.Context) {
	id, okID := messageID(c)
	if !okID {
		return
	}

	m, err := h.msgSvc.MarkRead(c.Request.Context(), userID(c), id)
	switch err {
	case nil:
		ok(c, http.StatusOK, SendMessageResponse{Message: m})
	case services.ErrNotFoundOrUnauthorized:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not mark message read")
	}
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a direct message
// @Description Only the sender may delete a message. A missing message and
// @Description someone else's message are indistinguishable to the caller.
// @Tags        Messages
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    int     true  "Message ID"
//
// @Success     204  "Deleted"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	id, okID := messageID(c)
	if !okID {
		return
	}

	err := h.msgSvc.Delete(c.Request.Context(), userID(c), id)
	switch err {
	case nil:
		noContent(c)
	case services.ErrNotFoundOrUnauthorized:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete message")
	}
}
