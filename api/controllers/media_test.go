package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/pkg/db/models"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
)

type testMediaService struct {
	getFn    func(ctx context.Context, id uuid.UUID) (*models.Media, error)
	listFn   func(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error)
	deleteFn func(ctx context.Context, id uuid.UUID) error
}

func (s *testMediaService) Get(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return &models.Media{ID: id}, nil
}

func (s *testMediaService) ListByUploader(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error) {
	if s.listFn != nil {
		return s.listFn(ctx, uploaderID)
	}
	return nil, nil
}

func (s *testMediaService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func TestMediaGetSuccess(t *testing.T) {
	mediaID := uuid.New()
	svc := &testMediaService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Media, error) {
			if id != mediaID {
				t.Fatalf("unexpected id %s", id)
			}
			return &models.Media{ID: mediaID, StorageKey: "packages/p1/cover/1_walk.jpg"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+mediaID.String(), nil)
	req = addRouteParam(req, "mediaID", mediaID.String())
	resp := httptest.NewRecorder()

	MediaGet(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data models.Media `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.StorageKey != "packages/p1/cover/1_walk.jpg" {
		t.Fatalf("unexpected key %q", envelope.Data.StorageKey)
	}
}

func TestMediaGetNotFound(t *testing.T) {
	svc := &testMediaService{
		getFn: func(ctx context.Context, id uuid.UUID) (*models.Media, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		},
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+id, nil)
	req = addRouteParam(req, "mediaID", id)
	resp := httptest.NewRecorder()

	MediaGet(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestMediaListRequiresUploader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/media", nil)
	resp := httptest.NewRecorder()

	MediaList(&testMediaService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMediaListSuccess(t *testing.T) {
	uploaderID := uuid.New()
	svc := &testMediaService{
		listFn: func(ctx context.Context, id uuid.UUID) ([]models.Media, error) {
			if id != uploaderID {
				t.Fatalf("unexpected uploader %s", id)
			}
			return []models.Media{{ID: uuid.New()}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media?uploader_id="+uploaderID.String(), nil)
	resp := httptest.NewRecorder()

	MediaList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Media []models.Media `json:"media"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Media) != 1 {
		t.Fatalf("expected 1 media got %d", len(envelope.Data.Media))
	}
}

func TestMediaDeleteSuccess(t *testing.T) {
	mediaID := uuid.New()
	called := false
	svc := &testMediaService{
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			called = true
			if id != mediaID {
				t.Fatalf("unexpected id %s", id)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/"+mediaID.String(), nil)
	req = addRouteParam(req, "mediaID", mediaID.String())
	resp := httptest.NewRecorder()

	MediaDelete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestMediaDeleteInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/media/bogus", nil)
	req = addRouteParam(req, "mediaID", "bogus")
	resp := httptest.NewRecorder()

	MediaDelete(&testMediaService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
