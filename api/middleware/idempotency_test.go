package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.values[key]; exists {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func postJSON(target, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls atomic.Int32
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"w-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postJSON("/api/v1/withdrawals", "key-1", `{"amount":"10"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postJSON("/api/v1/withdrawals", "key-1", `{"amount":"10"}`))
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical replayed body, got %q vs %q", second.Body.String(), first.Body.String())
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected handler to run once, ran %d times", got)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), postJSON("/api/v1/withdrawals", "key-1", `{"amount":"10"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postJSON("/api/v1/withdrawals", "key-1", `{"amount":"999"}`))
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key got %d", resp.Code)
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without a key")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, postJSON("/api/v1/conversions", "", `{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key got %d", resp.Code)
	}
}

func TestIdempotencyIgnoresUnguardedRoutes(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet/balances", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if calls.Load() != 1 {
		t.Fatal("expected unguarded route to pass through")
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newFakeStore()
	var calls atomic.Int32
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	alice := postJSON("/api/v1/withdrawals", "key-1", `{"amount":"10"}`)
	alice = alice.WithContext(WithUserID(alice.Context(), "alice"))
	handler.ServeHTTP(httptest.NewRecorder(), alice)

	bob := postJSON("/api/v1/withdrawals", "key-1", `{"amount":"10"}`)
	bob = bob.WithContext(WithUserID(bob.Context(), "bob"))
	handler.ServeHTTP(httptest.NewRecorder(), bob)

	if got := calls.Load(); got != 2 {
		t.Fatalf("expected both users to execute, ran %d times", got)
	}
}
