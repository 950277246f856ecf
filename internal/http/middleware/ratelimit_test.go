package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, h := range pre {
		r.Use(h)
	}
	r.Use(rl.Handler())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_ExhaustsBurst(t *testing.T) {
	// Zero refill rate so only the burst tokens exist.
	rl := NewRateLimiter(0, 2, KeyByUserOrIP())
	r := limitedRouter(rl)

	for i := 0; i < 2; i++ {
		if w := get(r, nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := get(r, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("429 must carry Retry-After")
	}
}

func TestRateLimiter_BucketsAreKeyed(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())

	// Inject distinct user ids ahead of the limiter so each gets a bucket.
	setUser := func(uid string) gin.HandlerFunc {
		return func(c *gin.Context) { c.Set(UserIDKey, uid); c.Next() }
	}

	ra := limitedRouter(rl, setUser("u-a"))
	rb := limitedRouter(rl, setUser("u-b"))

	if w := get(ra, nil); w.Code != http.StatusOK {
		t.Fatalf("first user: status = %d", w.Code)
	}
	if w := get(rb, nil); w.Code != http.StatusOK {
		t.Fatalf("second user must have its own bucket: status = %d", w.Code)
	}
	if w := get(ra, nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("first user again: status = %d, want 429", w.Code)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	markBypass := func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }
	r := limitedRouter(rl, markBypass)

	// Bypass requests never consume tokens, so any number succeeds.
	for i := 0; i < 5; i++ {
		if w := get(r, nil); w.Code != http.StatusOK {
			t.Fatalf("bypass request %d: status = %d", i, w.Code)
		}
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	keyFn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if k := keyFn(c); k == "" || k[:3] != "ip:" {
		t.Fatalf("anonymous key = %q, want ip: prefix", k)
	}

	c.Set(UserIDKey, "u-7")
	if k := keyFn(c); k != "user:u-7" {
		t.Fatalf("authenticated key = %q", k)
	}
}
