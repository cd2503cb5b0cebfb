package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPermitBurstThenRefill(t *testing.T) {
	l := New(Options{RPS: 1, Burst: 2})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Permit("a") || !l.Permit("a") {
		t.Fatalf("burst should allow two requests")
	}
	if l.Permit("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Permit("b") {
		t.Fatalf("clients must not share buckets")
	}
	now = now.Add(time.Second)
	if !l.Permit("a") {
		t.Fatalf("bucket should refill after a second")
	}
}

func TestAllowCapsInflight(t *testing.T) {
	l := New(Options{MaxInflight: 1})
	release, ok := l.Allow("split")
	if !ok {
		t.Fatalf("first slot should be granted")
	}
	if _, ok := l.Allow("SPLIT"); ok {
		t.Fatalf("keys are case-insensitive and capped")
	}
	release()
	if _, ok := l.Allow("split"); !ok {
		t.Fatalf("slot should be free after release")
	}
}

func TestPrune(t *testing.T) {
	l := New(Options{Idle: time.Minute})
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Permit("old")
	now = now.Add(2 * time.Minute)
	l.Permit("new")
	if n := l.Prune(); n != 1 {
		t.Fatalf("expected one idle client pruned, got %d", n)
	}
}

func TestMiddleware(t *testing.T) {
	l := New(Options{RPS: 0.001, Burst: 1})
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/compress/files", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second request should be limited, got %d", rec.Code)
	}
	if ClientKey(req) != "203.0.113.9" {
		t.Fatalf("unexpected client key %q", ClientKey(req))
	}
}
