package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mariogalvez/roamly-backend/internal/storage"
	"github.com/mariogalvez/roamly-backend/internal/tours"
	"github.com/mariogalvez/roamly-backend/pkg/config"
	"github.com/mariogalvez/roamly-backend/pkg/db/models"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type fakeIdemStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{values: map[string]string{}}
}

func (f *fakeIdemStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeIdemStore) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"test", "idem", scope, id}, ":")
}

type stubStorageService struct{}

func (stubStorageService) Stage(ctx context.Context, input storage.StageInput) (*storage.StagedFile, error) {
	return &storage.StagedFile{TempID: uuid.New(), Key: "temp/sess/cover/1-file.jpg"}, nil
}

func (stubStorageService) Finalize(ctx context.Context, packageID, uploaderID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
	return nil, nil
}

func (stubStorageService) ResolveURL(ctx context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func (stubStorageService) DiscardTemp(ctx context.Context, key string) error {
	return nil
}

type stubToursService struct{}

func (stubToursService) CreatePackage(ctx context.Context, input tours.CreatePackageInput) (*models.TourPackage, error) {
	return &models.TourPackage{ID: uuid.New()}, nil
}

func (stubToursService) GetPackage(ctx context.Context, id uuid.UUID) (*tours.PackageDetail, error) {
	return &tours.PackageDetail{Package: models.TourPackage{ID: id}}, nil
}

func (stubToursService) ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.TourPackage, error) {
	return nil, nil
}

type stubMediaService struct{}

func (stubMediaService) Get(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	return &models.Media{ID: id}, nil
}

func (stubMediaService) ListByUploader(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error) {
	return nil, nil
}

func (stubMediaService) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:   config.AppConfig{Env: "test", Port: "0"},
		Media: config.MediaConfig{MaxUploadMB: 50},
	}
}

func newTestRouter() http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		stubPinger{},
		newFakeIdemStore(),
		stubStorageService{},
		stubToursService{},
		stubMediaService{},
	)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter()

	live := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, live)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for live got %d", resp.Code)
	}
	if resp.Header().Get("X-Roamly-Env") != "test" {
		t.Fatalf("expected env header, got %q", resp.Header().Get("X-Roamly-Env"))
	}

	ready := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, ready)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for ready got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestPublicPingRoute(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public ping got %d", resp.Code)
	}
}

func TestRequestIDHeaderExposed(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected request id header")
	}
}

func TestPackageCreateRequiresIdempotencyKey(t *testing.T) {
	router := newTestRouter()
	payload, err := json.Marshal(map[string]any{"guide_id": uuid.New(), "title": "Walk"})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/packages", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
}

func TestFinalizeRequiresUploaderIdentity(t *testing.T) {
	router := newTestRouter()
	payload, err := json.Marshal(map[string]any{
		"package_id":  uuid.New(),
		"uploader_id": uuid.New(),
		"files":       []map[string]any{{"key": "temp/x/cover/1-a.jpg", "role": "cover"}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without uploader identity got %d", resp.Code)
	}
}

type countingStorageService struct {
	stubStorageService
	finalizeCalls int
}

func (c *countingStorageService) Finalize(ctx context.Context, packageID, uploaderID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
	c.finalizeCalls++
	return []storage.FinalizedMedia{}, nil
}

func TestFinalizeReplaySameIdempotencyKey(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	store := newFakeIdemStore()
	svc := &countingStorageService{}
	router := NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		stubPinger{},
		store,
		svc,
		stubToursService{},
		stubMediaService{},
	)

	uploaderID := uuid.NewString()
	idemKey := uuid.NewString()
	payload, err := json.Marshal(map[string]any{
		"package_id": uuid.New(),
		"files":      []map[string]any{{"key": "temp/x/cover/1-a.jpg", "role": "cover"}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Uploader-Id", uploaderID)
		req.Header.Set("Idempotency-Key", idemKey)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 on first finalize got %d: %s", first.Code, first.Body.String())
	}
	if len(store.values) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.values))
	}

	second := send()
	if second.Code != http.StatusOK {
		t.Fatalf("expected replayed 200 got %d: %s", second.Code, second.Body.String())
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body differs: %s vs %s", second.Body.String(), first.Body.String())
	}
	if svc.finalizeCalls != 1 {
		t.Fatalf("expected one service call, got %d", svc.finalizeCalls)
	}
}

func TestFinalizeRejectsKeyReuseWithDifferentBody(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Output: io.Discard})
	store := newFakeIdemStore()
	svc := &countingStorageService{}
	router := NewRouter(
		testConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		stubPinger{},
		store,
		svc,
		stubToursService{},
		stubMediaService{},
	)

	uploaderID := uuid.NewString()
	idemKey := uuid.NewString()
	send := func(key string) *httptest.ResponseRecorder {
		payload, err := json.Marshal(map[string]any{
			"package_id": uuid.New(),
			"files":      []map[string]any{{"key": key, "role": "cover"}},
		})
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Uploader-Id", uploaderID)
		req.Header.Set("Idempotency-Key", idemKey)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if resp := send("temp/x/cover/1-a.jpg"); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on first finalize got %d: %s", resp.Code, resp.Body.String())
	}
	resp := send("temp/x/cover/2-b.jpg")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new body got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.finalizeCalls != 1 {
		t.Fatalf("expected one service call, got %d", svc.finalizeCalls)
	}
}

func TestUploaderHeaderMustBeUUID(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("X-Uploader-Id", "not-a-uuid")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad uploader header got %d", resp.Code)
	}
}

func TestPackageGetRoute(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/packages/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for package get got %d", resp.Code)
	}
}

func TestStorageFileURLRoute(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/file-url?key=packages%2Fp1%2Fcover%2F1_a.jpg", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for file url got %d", resp.Code)
	}
}
