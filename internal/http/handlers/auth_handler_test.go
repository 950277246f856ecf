package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/go-messenger-backend/internal/domain"
	"github.com/parleyhq/go-messenger-backend/internal/services"
)

// ---------- shared test plumbing ----------

// stubAuthSvc lets each test script the auth service's behavior.
type stubAuthSvc struct {
	register func(ctx context.Context, username, email, password string) (*domain.User, error)
	login    func(ctx context.Context, username, password string) (string, *domain.User, error)
}

func (s stubAuthSvc) Register(ctx context.Context, u, e, p string) (*domain.User, error) {
	if s.register != nil {
		return s.register(ctx, u, e, p)
	}
	return &domain.User{ID: "u1", Username: u, Email: e}, nil
}

func (s stubAuthSvc) Login(ctx context.Context, u, p string) (string, *domain.User, error) {
	if s.login != nil {
		return s.login(ctx, u, p)
	}
	return "tok", &domain.User{ID: "u1", Username: u}, nil
}

// doJSON performs a JSON request against a router and returns the recorder.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeError unmarshals the standard error envelope.
func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error envelope: %v (body %q)", err, w.Body.String())
	}
	return e
}

// ---------- tests ----------

func newAuthRouter(svc AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(svc, stubMsgSvc{}, stubGroupSvc{}, stubAiSvc{})
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func TestRegisterHandler_Success(t *testing.T) {
	r := newAuthRouter(stubAuthSvc{})

	w := doJSON(t, r, http.MethodPost, "/auth/register",
		RegisterRequest{Username: "alice", Email: "a@example.com", Password: "correct horse"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestRegisterHandler_BadJSONAndValidation(t *testing.T) {
	r := newAuthRouter(stubAuthSvc{})

	// Binding rejects a missing password before the service runs.
	w := doJSON(t, r, http.MethodPost, "/auth/register",
		map[string]string{"username": "alice", "email": "a@example.com"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestRegisterHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", services.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
		{"taken", services.ErrUsernameOrEmailTaken, http.StatusConflict, ErrCodeConflict},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError, ErrCodeCreateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthRouter(stubAuthSvc{
				register: func(context.Context, string, string, string) (*domain.User, error) {
					return nil, tc.err
				},
			})
			w := doJSON(t, r, http.MethodPost, "/auth/register",
				RegisterRequest{Username: "alice", Email: "a@example.com", Password: "correct horse"}, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if e := decodeError(t, w); e.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", e.Code, tc.wantCode)
			}
		})
	}
}

func TestLoginHandler_Success(t *testing.T) {
	r := newAuthRouter(stubAuthSvc{
		login: func(ctx context.Context, u, p string) (string, *domain.User, error) {
			return "signed-token", &domain.User{ID: "u1", Username: "alice"}, nil
		},
	})

	w := doJSON(t, r, http.MethodPost, "/auth/login",
		LoginRequest{Username: "alice", Password: "correct horse"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "signed-token" || resp.UserID != "u1" || resp.Username != "alice" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	r := newAuthRouter(stubAuthSvc{
		login: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, services.ErrInvalidCredentials
		},
	})

	w := doJSON(t, r, http.MethodPost, "/auth/login",
		LoginRequest{Username: "alice", Password: "nope"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeUnauthorized {
		t.Fatalf("code = %q", e.Code)
	}
}
