package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type counterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	ttls   map[string]time.Duration
}

func newCounterStore() *counterStore {
	return &counterStore{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (s *counterStore) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	s.ttls[key] = ttl
	return s.counts[key], nil
}

func (s *counterStore) RateLimitKey(scope string) string { return "rl:" + scope }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func postJSON(path, body, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = remote
	return req
}

func TestRateLimitBodyFieldIsCaseInsensitive(t *testing.T) {
	store := newCounterStore()
	handler := RateLimit(NewAuthRateLimitPolicy("login", time.Minute, 0, 2), store, nil)(okHandler())

	bodies := []string{
		`{"email":"shopper@example.com","password":"pw"}`,
		`{"email":"  SHOPPER@example.com","password":"pw"}`,
		`{"email":"Shopper@Example.com","password":"pw"}`,
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i, body := range bodies {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postJSON("/api/v1/auth/login", body, "10.0.0.1:1000"))
		if rec.Code != want[i] {
			t.Fatalf("attempt %d: expected %d, got %d", i+1, want[i], rec.Code)
		}
	}
}

func TestRateLimitRejectionEnvelope(t *testing.T) {
	store := newCounterStore()
	handler := RateLimit(NewRateLimitPolicy("verify", 30*time.Second, ByBodyField("orderId", 1)), store, nil)(okHandler())

	body := `{"orderId":"6f1c2a8e-4b7d-4a47-9d0e-0c5f3f7e8a11","signature":"bad"}`
	handler.ServeHTTP(httptest.NewRecorder(), postJSON("/api/v1/payments/verify", body, "10.0.0.2:1000"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON("/api/v1/payments/verify", body, "10.0.0.3:1000"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After 30, got %q", got)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("unexpected code %s", payload.Error.Code)
	}
}

func TestRateLimitKeysPerClientIP(t *testing.T) {
	store := newCounterStore()
	handler := RateLimit(NewRateLimitPolicy("orders", time.Minute, ByClientIP(1)), store, nil)(okHandler())

	cases := []struct {
		name   string
		remote string
		header string
		want   int
	}{
		{name: "first caller", remote: "10.1.1.1:5000", want: http.StatusOK},
		{name: "second caller", remote: "10.1.1.2:5000", want: http.StatusOK},
		{name: "first caller again", remote: "10.1.1.1:6000", want: http.StatusTooManyRequests},
		{name: "forwarded for fresh client", remote: "10.1.1.1:6000", header: "203.0.113.9, 10.1.1.1", want: http.StatusOK},
	}
	for _, tc := range cases {
		req := postJSON("/api/v1/orders", `{}`, tc.remote)
		if tc.header != "" {
			req.Header.Set("X-Forwarded-For", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestRateLimitLeavesBodyReadable(t *testing.T) {
	store := newCounterStore()
	body := `{"email":"reader@example.com","password":"pw"}`
	handler := RateLimit(NewAuthRateLimitPolicy("register", time.Minute, 5, 5), store, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, err := io.ReadAll(r.Body)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != body {
				t.Fatalf("body changed: %s", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postJSON("/api/v1/auth/register", body, "10.2.2.2:1"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	for key, ttl := range store.ttls {
		if ttl != time.Minute {
			t.Fatalf("key %s stored with ttl %s", key, ttl)
		}
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newCounterStore()
	handler := RateLimit(NewRateLimitPolicy("noop", time.Minute, ByClientIP(0)), store, nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postJSON("/", `{}`, "10.3.3.3:1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("expected no counters, got %v", store.counts)
	}
}
