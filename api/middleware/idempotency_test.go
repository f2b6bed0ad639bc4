package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/types"
)

type fakeIdemStore struct {
	data map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{data: make(map[string]string)}
}

func (f *fakeIdemStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeIdemStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

// groupRequest mimics a request seen by group middleware: chi has matched
// only the mount point, so the full route pattern is not available yet and
// matching must work off the URL path.
func groupRequest(method, url string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{"/api/v1/*"}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"finalize is critical", http.MethodPost, "/api/v1/storage/finalize", criticalIdempotencyTTL, true},
		{"stage cover", http.MethodPost, "/api/v1/storage/temp/cover", defaultIdempotencyTTL, true},
		{"stage media", http.MethodPost, "/api/v1/storage/temp/media", defaultIdempotencyTTL, true},
		{"create package", http.MethodPost, "/api/v1/packages", defaultIdempotencyTTL, true},
		{"resolver is not idempotent", http.MethodGet, "/api/v1/storage/file-url", 0, false},
		{"discard is not idempotent", http.MethodDelete, "/api/v1/storage/temp/*", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdemStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"data":{"attempt":%d}}`, calls)
	}))

	body := `{"package_id":"p1"}`
	first := httptest.NewRecorder()
	req := groupRequest(http.MethodPost, "/api/v1/storage/finalize", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req = groupRequest(http.MethodPost, "/api/v1/storage/finalize", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(second, req)

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("statuses %d and %d, want both 201", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdemStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := groupRequest(http.MethodPost, "/api/v1/storage/finalize", strings.NewReader(`{"a":1}`))
	req.Header.Set("Idempotency-Key", "key-2")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	req = groupRequest(http.MethodPost, "/api/v1/storage/finalize", strings.NewReader(`{"a":2}`))
	req.Header.Set("Idempotency-Key", "key-2")
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("code = %q, want %q", envelope.Error.Code, pkgerrors.CodeIdempotency)
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	handler := Idempotency(newFakeIdemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	req := groupRequest(http.MethodPost, "/api/v1/storage/finalize", strings.NewReader(`{}`))
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestIdempotencyDoesNotRecordFailures(t *testing.T) {
	store := newFakeIdemStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := groupRequest(http.MethodPost, "/api/v1/storage/finalize", strings.NewReader(`{"a":1}`))
		req.Header.Set("Idempotency-Key", "key-3")
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", w.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("failed attempts must not be replayed, handler ran %d times", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("failed attempt was recorded: %v", store.data)
	}
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	calls := 0
	handler := Idempotency(newFakeIdemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := groupRequest(http.MethodGet, "/api/v1/storage/file-url", nil)
		handler.ServeHTTP(w, req)
	}
	if calls != 2 {
		t.Fatalf("unmatched route must pass through every time, handler ran %d times", calls)
	}
}
