package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/services"
)

// stubGroupSvc scripts GroupService behavior per test.
type stubGroupSvc struct {
	create    func(ctx context.Context, creatorID, name, description string) (*domain.Group, error)
	list      func(ctx context.Context, userID string) ([]domain.Group, error)
	addMember func(ctx context.Context, groupID, requesterID, targetID string) error
	members   func(ctx context.Context, groupID, requesterID string) ([]domain.Member, error)
	post      func(ctx context.Context, groupID, senderID, content string) (*domain.GroupMessage, error)
	messages  func(ctx context.Context, groupID, requesterID string) ([]domain.GroupThreadMessage, error)
}

func (s stubGroupSvc) Create(ctx context.Context, creatorID, name, description string) (*domain.Group, error) {
	if s.create != nil {
		return s.create(ctx, creatorID, name, description)
	}
	return &domain.Group{ID: "g1", Name: name, CreatedBy: creatorID}, nil
}

func (s stubGroupSvc) List(ctx context.Context, userID string) ([]domain.Group, error) {
	if s.list != nil {
		return s.list(ctx, userID)
	}
	return nil, nil
}

func (s stubGroupSvc) AddMember(ctx context.Context, groupID, requesterID, targetID string) error {
	if s.addMember != nil {
		return s.addMember(ctx, groupID, requesterID, targetID)
	}
	return nil
}

func (s stubGroupSvc) Members(ctx context.Context, groupID, requesterID string) ([]domain.Member, error) {
	if s.members != nil {
		return s.members(ctx, groupID, requesterID)
	}
	return nil, nil
}

func (s stubGroupSvc) Post(ctx context.Context, groupID, senderID, content string) (*domain.GroupMessage, error) {
	if s.post != nil {
		return s.post(ctx, groupID, senderID, content)
	}
	return &domain.GroupMessage{ID: 1, GroupID: groupID, SenderID: senderID, Content: content}, nil
}

func (s stubGroupSvc) Messages(ctx context.Context, groupID, requesterID string) ([]domain.GroupThreadMessage, error) {
	if s.messages != nil {
		return s.messages(ctx, groupID, requesterID)
	}
	return nil, nil
}

func newGroupRouter(svc GroupService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(stubAuthSvc{}, stubMsgSvc{}, svc, stubAiSvc{})
	r := gin.New()
	r.POST("/groups", h.CreateGroup)
	r.GET("/groups", h.ListGroups)
	r.POST("/groups/:id/members", h.AddGroupMember)
	r.GET("/groups/:id/members", h.ListGroupMembers)
	r.POST("/groups/:id/messages", h.PostGroupMessage)
	r.GET("/groups/:id/messages", h.ListGroupMessages)
	return r
}

func TestCreateGroupHandler(t *testing.T) {
	r := newGroupRouter(stubGroupSvc{})

	w := doJSON(t, r, http.MethodPost, "/groups",
		CreateGroupRequest{Name: "hikers", Description: "weekend walks"}, asUser("u-alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp GroupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Group.Name != "hikers" {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}

	// Missing name dies in binding.
	w = doJSON(t, r, http.MethodPost, "/groups", map[string]string{"description": "x"}, asUser("u-alice"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAddGroupMemberHandler_GuardMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"ok", nil, http.StatusNoContent, ""},
		{"not a member", services.ErrNotMember, http.StatusForbidden, ErrCodeForbidden},
		{"group missing", services.ErrGroupNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"target missing", services.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newGroupRouter(stubGroupSvc{
				addMember: func(context.Context, string, string, string) error { return tc.err },
			})
			w := doJSON(t, r, http.MethodPost, "/groups/g1/members",
				AddMemberRequest{UserID: "u-bob"}, asUser("u-alice"))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if tc.wantCode != "" {
				if e := decodeError(t, w); e.Code != tc.wantCode {
					t.Fatalf("code = %q, want %q", e.Code, tc.wantCode)
				}
			}
		})
	}
}

func TestListGroupMembersHandler_ForbiddenForOutsiders(t *testing.T) {
	r := newGroupRouter(stubGroupSvc{
		members: func(ctx context.Context, groupID, requesterID string) ([]domain.Member, error) {
			if requesterID != "u-alice" {
				return nil, services.ErrNotMember
			}
			return []domain.Member{{UserID: "u-alice", Username: "alice"}}, nil
		},
	})

	w := doJSON(t, r, http.MethodGet, "/groups/g1/members", nil, asUser("u-alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("member status = %d", w.Code)
	}
	var resp MembersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || len(resp.Members) != 1 {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/groups/g1/members", nil, asUser("u-mallory"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("outsider status = %d", w.Code)
	}
}

func TestPostGroupMessageHandler(t *testing.T) {
	var gotGroup, gotSender, gotContent string
	r := newGroupRouter(stubGroupSvc{
		post: func(ctx context.Context, groupID, senderID, content string) (*domain.GroupMessage, error) {
			gotGroup, gotSender, gotContent = groupID, senderID, content
			return &domain.GroupMessage{ID: 3, GroupID: groupID, SenderID: senderID, Content: content}, nil
		},
	})

	w := doJSON(t, r, http.MethodPost, "/groups/g1/messages",
		PostGroupMessageRequest{Content: " trailhead at 8 "}, asUser("u-alice"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	if gotGroup != "g1" || gotSender != "u-alice" || gotContent != "trailhead at 8" {
		t.Fatalf("got group=%q sender=%q content=%q", gotGroup, gotSender, gotContent)
	}
}

func TestPostGroupMessageHandler_NonMember(t *testing.T) {
	r := newGroupRouter(stubGroupSvc{
		post: func(context.Context, string, string, string) (*domain.GroupMessage, error) {
			return nil, services.ErrNotMember
		},
	})

	w := doJSON(t, r, http.MethodPost, "/groups/g1/messages",
		PostGroupMessageRequest{Content: "hi"}, asUser("u-mallory"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListGroupMessagesHandler(t *testing.T) {
	r := newGroupRouter(stubGroupSvc{
		messages: func(ctx context.Context, groupID, requesterID string) ([]domain.GroupThreadMessage, error) {
			return []domain.GroupThreadMessage{
				{ID: 1, GroupID: groupID, SenderUsername: "alice", Content: "one"},
				{ID: 2, GroupID: groupID, SenderUsername: "bob", Content: "two"},
			}, nil
		},
	})

	w := doJSON(t, r, http.MethodGet, "/groups/g1/messages", nil, asUser("u-alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp GroupMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].Content != "one" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestListGroupsHandler(t *testing.T) {
	r := newGroupRouter(stubGroupSvc{
		list: func(ctx context.Context, userID string) ([]domain.Group, error) {
			return []domain.Group{{ID: "g1", Name: "hikers"}}, nil
		},
	})

	w := doJSON(t, r, http.MethodGet, "/groups", nil, asUser("u-alice"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp GroupsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || len(resp.Groups) != 1 {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
}
