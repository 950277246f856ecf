package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// idemRouter wires IdempotencyValidator ahead of a probe handler that reports
// the state the middleware left in the context.
func idemRouter(opts IdempotencyOptions, scopeFn ScopeFunc, lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(IdempotencyValidator(opts, scopeFn, lookup))
	r.POST("/things/:id", func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{
			"key":    key,
			"replay": IsReplay(c),
			"bypass": IsRateBypass(c),
		})
	})
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/things/g1", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotency_NoHeaderIsNoop(t *testing.T) {
	r := idemRouter(IdempotencyOptions{}, nil, nil)
	w := postWithKey(r, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"key":""`) {
		t.Fatalf("key must be empty: %s", w.Body.String())
	}
}

func TestIdempotency_RejectsMalformedKeys(t *testing.T) {
	r := idemRouter(IdempotencyOptions{MaxLen: 10}, nil, nil)

	for _, key := range []string{
		"has spaces",
		"emoji-é",
		"way-too-long-for-the-cap",
	} {
		w := postWithKey(r, key)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("key %q: status = %d", key, w.Code)
		}
	}
}

func TestIdempotency_AcceptsTokenKeys(t *testing.T) {
	r := idemRouter(IdempotencyOptions{}, nil, nil)

	for _, key := range []string{"abc-123", "a.b_c~d:e", "2f9a0b"} {
		w := postWithKey(r, key)
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), key) {
			t.Fatalf("key %q: status = %d body = %s", key, w.Code, w.Body.String())
		}
	}
}

func TestIdempotency_ReplaySetsFlags(t *testing.T) {
	var gotScope, gotKey string
	lookup := func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		gotScope, gotKey = scope, key
		return true, nil
	}
	scopeFn := func(c *gin.Context) string { return "group:" + c.Param("id") }

	r := idemRouter(IdempotencyOptions{}, scopeFn, lookup)
	w := postWithKey(r, "retry-1")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if gotScope != "group:g1" || gotKey != "retry-1" {
		t.Fatalf("lookup saw scope=%q key=%q", gotScope, gotKey)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"replay":true`) || !strings.Contains(body, `"bypass":true`) {
		t.Fatalf("flags not set: %s", body)
	}
}

func TestIdempotency_EmptyScopeSkipsLookup(t *testing.T) {
	called := false
	lookup := func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		called = true
		return true, nil
	}
	scopeFn := func(*gin.Context) string { return "" }

	r := idemRouter(IdempotencyOptions{}, scopeFn, lookup)
	w := postWithKey(r, "retry-1")

	if w.Code != http.StatusOK || called {
		t.Fatalf("status = %d lookupCalled = %v", w.Code, called)
	}
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("replay must stay false: %s", w.Body.String())
	}
}

func TestIdempotency_LookupMissKeepsFlagsClear(t *testing.T) {
	lookup := func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		return false, nil
	}
	r := idemRouter(IdempotencyOptions{}, func(*gin.Context) string { return "s" }, lookup)
	w := postWithKey(r, "fresh")

	body := w.Body.String()
	if !strings.Contains(body, `"replay":false`) || !strings.Contains(body, `"bypass":false`) {
		t.Fatalf("flags must stay clear on miss: %s", body)
	}
}
