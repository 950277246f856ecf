// Group HTTP handlers.
//
// This file exposes REST endpoints for membership-gated group messaging:
//   - POST /groups                    (create a group; creator joins atomically)
//   - GET  /groups                    (groups the caller belongs to)
//   - POST /groups/{id}/members       (add a member; members only)
//   - GET  /groups/{id}/members       (list members; members only)
//   - POST /groups/{id}/messages      (post to the group; members only)
//   - GET  /groups/{id}/messages      (group history; members only)
//
// Every group operation is gated on the caller's membership in the service
// layer. Handlers translate ErrNotMember to 403 and ErrGroupNotFound to 404 so
// non-members learn nothing beyond "forbidden".
package handlers

import (
	"fmt"
	"net/http"
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

// CreateGroupRequest is the JSON payload for creating a group.
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255" example:"weekend-hikers"`
	Description string `json:"description" binding:"max=1024" example:"Planning the Saturday trail runs"`
}

// GroupResponse is the JSON envelope for a single group.
type GroupResponse struct {
	Group *domain.Group `json:"group"`
}

// GroupsResponse contains the groups the caller belongs to.
type GroupsResponse struct {
	Groups []domain.Group `json:"groups"`
}

// AddMemberRequest is the JSON payload for adding a user to a group.
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required" example:"7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab"`
}

// MembersResponse contains a group's member roster.
type MembersResponse struct {
	Members []domain.Member `json:"members"`
}

// PostGroupMessageRequest is the JSON payload for posting to a group.
type PostGroupMessageRequest struct {
	Content string `json:"content" binding:"required,min=1" example:"Trailhead at 8, bring water"`
}

// GroupMessageResponse is the JSON envelope for a newly created group message.
type GroupMessageResponse struct {
	Message *domain.GroupMessage `json:"message"`
}

// GroupMessagesResponse contains a group's message history, oldest first.
type GroupMessagesResponse struct {
	Messages []domain.GroupThreadMessage `json:"messages"`
}

//
// Helpers
//

// groupScope is the idempotency scope for posts into one group.
func groupScope(groupID string) string { return "group:" + groupID }

// discoverGroupMaxContentRunes mirrors discoverMaxContentRunes for the
// concrete GroupService.
func discoverGroupMaxContentRunes(groupSvc GroupService) int {
	const fallback = 4000
	if gs, ok := groupSvc.(*services.GroupService); ok {
		if gs.MaxContentRunes > 0 {
			return gs.MaxContentRunes
		}
	}
	return fallback
}

// failGroup maps the shared group-service failures onto HTTP responses.
// Returns true when the error was handled.
func failGroup(c *gin.Context, err error) bool {
	switch err {
	case nil:
		return false
	case services.ErrGroupNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "group not found")
	case services.ErrNotMember:
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this group")
	default:
		return false
	}
	return true
}

//
// Handlers
//

// CreateGroup godoc
// @ID          createGroup
// @Summary     Create a group
// @Description Creates a group and enrolls the creator as its first member in
// @Description the same transaction.
// @Tags        Groups
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       body           body    handlers.CreateGroupRequest  true  "Group payload"
//
// @Success     201  {object}  handlers.GroupResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups [post]
func (h *Handlers) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name required")
		return
	}

	g, err := h.groupSvc.Create(c.Request.Context(), userID(c), req.Name, req.Description)
	switch err {
	case nil:
		ok(c, http.StatusCreated, GroupResponse{Group: g})
	case services.ErrInvalidInput:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid group name")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create group")
	}
}

// ListGroups godoc
// @ID          listGroups
// @Summary     List the caller's groups
// @Tags        Groups
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
//
// @Success     200  {object}  handlers.GroupsResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups [get]
func (h *Handlers) ListGroups(c *gin.Context) {
	groups, err := h.groupSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list groups")
		return
	}
	ok(c, http.StatusOK, GroupsResponse{Groups: groups})
}

// AddGroupMember godoc
// @ID          addGroupMember
// @Summary     Add a user to a group
// @Description Only existing members may add users. Adding an existing member
// @Description succeeds without effect.
// @Tags        Groups
// @Accept      json
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Group ID"  format(uuid)
// @Param       body           body    handlers.AddMemberRequest  true  "Member payload"
//
// @Success     204  "Member added (or already present)"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a member"
// @Failure     404  {object}  handlers.ErrorResponse  "Group or user not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/{id}/members [post]
func (h *Handlers) AddGroupMember(c *gin.Context) {
	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "user_id required")
		return
	}

	err := h.groupSvc.AddMember(c.Request.Context(), c.Param("id"), userID(c), req.UserID)
	if failGroup(c, err) {
		return
	}
	switch err {
	case nil:
		noContent(c)
	case services.ErrUserNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not add member")
	}
}

// ListGroupMembers godoc
// @ID          listGroupMembers
// @Summary     List a group's members
// @Tags        Groups
// @Produce     json
//
// @Param       Authorization  header  string  true  "Bearer token"
// @Param       id             path    string  true  "Group ID"  format(uuid)
//
// @Success     200  {object}  handlers.MembersResponse
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a member"
// @Failure     404  {object}  handlers.ErrorResponse  "Group not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/{id}/members [get]
func (h *Handlers) ListGroupMembers(c *gin.Context) {
	members, err := h.groupSvc.Members(c.Request.Context(), c.Param("id"), userID(c))
	if failGroup(c, err) {
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list members")
		return
	}
	ok(c, http.StatusOK, MembersResponse{Members: members})
}

// PostGroupMessage godoc
// @ID          postGroupMessage
// @Summary     Post a message to a group
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Groups
// @Accept      json
// @Produce     json
//
// @Param       Authorization    header  string  true   "Bearer token"
// @Param       Idempotency-Key  header  string  false  "Idempotency key for safe retries"
// @Param       id               path    string  true   "Group ID"  format(uuid)
// @Param       body             body    handlers.PostGroupMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.GroupMessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a member"
// @Failure     404  {object}  handlers.ErrorResponse  "Group not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/{id}/messages [post]
func (h *Handlers) PostGroupMessage(c *gin.Context) {
	ctx := c.Request.Context()
	groupID := c.Param("id")

	var req PostGroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	content := sanitizeContent(req.Content)
	maxRunes := discoverGroupMaxContentRunes(h.groupSvc)
	if maxRunes > 0 && utf8.RuneCountInString(content) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	}
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path). Group posts and direct sends share the
	// idempotency table; the scope prefix keeps the keyspaces apart.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if gs, okSvc := h.groupSvc.(*services.GroupService); okSvc && gs.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, gs.DB, currentUser, groupScope(groupID), idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetGroupMessage(ctx, gs.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, GroupMessageResponse{Message: prev})
					return
				}
			}
		}
	}

	m, err := h.groupSvc.Post(ctx, groupID, currentUser, content)
	if failGroup(c, err) {
		return
	}
	switch err {
	case nil:
	case services.ErrTooLong:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", maxRunes))
		return
	case services.ErrEmptyContent:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	default:
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "could not post message")
		return
	}

	if idemKey != "" {
		if gs, okSvc := h.groupSvc.(*services.GroupService); okSvc && gs.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, gs.DB, currentUser, groupScope(groupID), idemKey,
				m.ID, http.StatusCreated, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusCreated, GroupMessageResponse{Message: m})
}

// ListGroupMessages godoc
// @ID          listGroupMessages
// @Summary     Get a group's message history
// @Description Returns the group's messages, oldest first. Supports conditional
// @Description requests: pass If-None-Match with a prior ETag to receive 304
// @Description when nothing changed.
// @Tags        Groups
// @Produce     json
//
// @Param       Authorization  header  string  true   "Bearer token"
// @Param       id             path    string  true   "Group ID"  format(uuid)
// @Param       If-None-Match  header  string  false  "Previously returned ETag"
//
// @Success     200  {object}  handlers.GroupMessagesResponse
// @Success     304  "Not modified"
// @Failure     403  {object}  handlers.ErrorResponse  "Caller is not a member"
// @Failure     404  {object}  handlers.ErrorResponse  "Group not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /groups/{id}/messages [get]
func (h *Handlers) ListGroupMessages(c *gin.Context) {
	ctx := c.Request.Context()
	groupID := c.Param("id")
	currentUser := userID(c)

	msgs, err := h.groupSvc.Messages(ctx, groupID, currentUser)
	if failGroup(c, err) {
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not load group messages")
		return
	}

	// ETag after the membership gate: non-members must not learn whether the
	// group's history changed.
	if gs, okSvc := h.groupSvc.(*services.GroupService); okSvc && gs.DB != nil {
		if count, maxID, maxAt, errStats := repo.GroupMessagesStats(ctx, gs.DB, groupID); errStats == nil {
			var ts int64
			if maxAt != nil {
				ts = maxAt.UTC().Unix()
			}
			etag := fmt.Sprintf(`W/"group:%s:%d:%d:%d"`, groupID, count, maxID, ts)
			c.Header("ETag", etag)
			c.Header("Cache-Control", "private, max-age=0, must-revalidate")
			if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	ok(c, http.StatusOK, GroupMessagesResponse{Messages: msgs})
}
