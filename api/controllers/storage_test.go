package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/api/middleware"
	"github.com/mariogalvez/roamly-backend/internal/storage"
	"github.com/mariogalvez/roamly-backend/pkg/enums"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

type testStorageService struct {
	stageFn    func(ctx context.Context, input storage.StageInput) (*storage.StagedFile, error)
	finalizeFn func(ctx context.Context, packageID, uploaderID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error)
	resolveFn  func(ctx context.Context, key string) (string, error)
	discardFn  func(ctx context.Context, key string) error
}

func (s *testStorageService) Stage(ctx context.Context, input storage.StageInput) (*storage.StagedFile, error) {
	if s.stageFn != nil {
		return s.stageFn(ctx, input)
	}
	return &storage.StagedFile{TempID: uuid.New(), Key: "temp/sess/cover/1-file.jpg", Role: enums.UploadRoleCover}, nil
}

func (s *testStorageService) Finalize(ctx context.Context, packageID, uploaderID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
	if s.finalizeFn != nil {
		return s.finalizeFn(ctx, packageID, uploaderID, refs)
	}
	return nil, nil
}

func (s *testStorageService) ResolveURL(ctx context.Context, key string) (string, error) {
	if s.resolveFn != nil {
		return s.resolveFn(ctx, key)
	}
	return "https://signed.example/" + key, nil
}

func (s *testStorageService) DiscardTemp(ctx context.Context, key string) error {
	if s.discardFn != nil {
		return s.discardFn(ctx, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func multipartUpload(t *testing.T, fields map[string]string, fileField, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("write field %s: %v", key, err)
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestStageCoverSuccess(t *testing.T) {
	var got storage.StageInput
	svc := &testStorageService{
		stageFn: func(ctx context.Context, input storage.StageInput) (*storage.StagedFile, error) {
			got = input
			return &storage.StagedFile{
				TempID: uuid.New(),
				Key:    "temp/sess-1/cover/1-walk.jpg",
				Role:   enums.UploadRoleCover,
			}, nil
		},
	}

	body, contentType := multipartUpload(t, map[string]string{"session_id": "sess-1"}, "file", "walk.jpg", "image-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/temp/cover", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()

	StageCover(svc, testLogger(), 50<<20)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.Role != enums.UploadRoleCover {
		t.Fatalf("unexpected role %s", got.Role)
	}
	if got.SessionID != "sess-1" {
		t.Fatalf("unexpected session %q", got.SessionID)
	}
	if got.FileName != "walk.jpg" {
		t.Fatalf("unexpected file name %q", got.FileName)
	}
	if got.SizeBytes != int64(len("image-bytes")) {
		t.Fatalf("unexpected size %d", got.SizeBytes)
	}
}

func TestStageCoverMissingFile(t *testing.T) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("session_id", "sess-1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/temp/cover", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()

	StageCover(&testStorageService{}, testLogger(), 50<<20)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStageStopMediaRequiresStopRole(t *testing.T) {
	body, contentType := multipartUpload(t, map[string]string{
		"session_id": "sess-1",
		"role":       "cover",
		"stop_index": "0",
	}, "file", "narration.mp3", "audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/temp/media", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()

	StageStopMedia(&testStorageService{}, testLogger(), 50<<20)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStageStopMediaSuccess(t *testing.T) {
	packageID := uuid.New()
	var got storage.StageInput
	svc := &testStorageService{
		stageFn: func(ctx context.Context, input storage.StageInput) (*storage.StagedFile, error) {
			got = input
			return &storage.StagedFile{
				TempID: uuid.New(),
				Key:    "temp/" + packageID.String() + "/stop_2/audio/1-narration.mp3",
				Role:   enums.UploadRoleStopAudio,
			}, nil
		},
	}

	body, contentType := multipartUpload(t, map[string]string{
		"package_id":       packageID.String(),
		"role":             "stop_audio",
		"stop_index":       "2",
		"duration_seconds": "93.5",
	}, "file", "narration.mp3", "audio-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/temp/media", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()

	StageStopMedia(svc, testLogger(), 50<<20)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got.Role != enums.UploadRoleStopAudio {
		t.Fatalf("unexpected role %s", got.Role)
	}
	if got.PackageID == nil || *got.PackageID != packageID {
		t.Fatalf("unexpected package id %v", got.PackageID)
	}
	if got.StopIndex == nil || *got.StopIndex != 2 {
		t.Fatalf("unexpected stop index %v", got.StopIndex)
	}
	if got.DurationSeconds == nil || *got.DurationSeconds != 93.5 {
		t.Fatalf("unexpected duration %v", got.DurationSeconds)
	}
}

func TestStorageFinalizeSuccess(t *testing.T) {
	packageID := uuid.New()
	uploaderID := uuid.New()
	mediaID := uuid.New()
	called := false
	svc := &testStorageService{
		finalizeFn: func(ctx context.Context, pkgID, upID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
			called = true
			if pkgID != packageID {
				t.Fatalf("unexpected package %s", pkgID)
			}
			if upID != uploaderID {
				t.Fatalf("unexpected uploader %s", upID)
			}
			if len(refs) != 1 {
				t.Fatalf("unexpected refs %d", len(refs))
			}
			return []storage.FinalizedMedia{{
				MediaID:    mediaID,
				StorageKey: "packages/" + pkgID.String() + "/cover/1_walk.jpg",
				Role:       enums.UploadRoleCover,
			}}, nil
		},
	}

	payload := map[string]any{
		"package_id":  packageID,
		"uploader_id": uploaderID,
		"files": []map[string]any{{
			"temp_id": uuid.New(),
			"key":     "temp/sess-1/cover/1-walk.jpg",
			"role":    "cover",
		}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUploaderID(req.Context(), uploaderID.String()))
	resp := httptest.NewRecorder()

	StorageFinalize(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data struct {
			Files []storage.FinalizedMedia `json:"files"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Files) != 1 || envelope.Data.Files[0].MediaID != mediaID {
		t.Fatalf("unexpected files %+v", envelope.Data.Files)
	}
}

func TestStorageFinalizeRejectsEmptyBatch(t *testing.T) {
	uploaderID := uuid.New()
	payload := map[string]any{
		"package_id":  uuid.New(),
		"uploader_id": uploaderID,
		"files":       []map[string]any{},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUploaderID(req.Context(), uploaderID.String()))
	resp := httptest.NewRecorder()

	StorageFinalize(&testStorageService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStorageFinalizeRejectsForeignUploader(t *testing.T) {
	svc := &testStorageService{
		finalizeFn: func(ctx context.Context, pkgID, upID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
			t.Fatal("service must not be called for a mismatched uploader")
			return nil, nil
		},
	}

	payload := map[string]any{
		"package_id":  uuid.New(),
		"uploader_id": uuid.New(),
		"files": []map[string]any{{
			"key":  "temp/sess-1/cover/1-walk.jpg",
			"role": "cover",
		}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUploaderID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()

	StorageFinalize(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "does not match") {
		t.Fatalf("expected mismatch message, got %s", resp.Body.String())
	}
}

func TestStorageFinalizeOwnerFromIdentity(t *testing.T) {
	uploaderID := uuid.New()
	var got uuid.UUID
	svc := &testStorageService{
		finalizeFn: func(ctx context.Context, pkgID, upID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
			got = upID
			return []storage.FinalizedMedia{}, nil
		},
	}

	// No uploader_id in the body: ownership comes from the request identity.
	payload := map[string]any{
		"package_id": uuid.New(),
		"files": []map[string]any{{
			"key":  "temp/sess-1/cover/1-walk.jpg",
			"role": "cover",
		}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUploaderID(req.Context(), uploaderID.String()))
	resp := httptest.NewRecorder()

	StorageFinalize(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if got != uploaderID {
		t.Fatalf("expected owner %s, got %s", uploaderID, got)
	}
}

func TestStorageFinalizePreconditionPassthrough(t *testing.T) {
	svc := &testStorageService{
		finalizeFn: func(ctx context.Context, pkgID, upID uuid.UUID, refs []storage.StagedFile) ([]storage.FinalizedMedia, error) {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "package has no stops")
		},
	}

	payload := map[string]any{
		"package_id": uuid.New(),
		"files": []map[string]any{{
			"key":  "temp/sess-1/cover/1-walk.jpg",
			"role": "cover",
		}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/storage/finalize", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithUploaderID(req.Context(), uuid.NewString()))
	resp := httptest.NewRecorder()

	StorageFinalize(svc, testLogger())(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "package has no stops") {
		t.Fatalf("expected concrete message, got %s", resp.Body.String())
	}
}

func TestStorageFileURL(t *testing.T) {
	svc := &testStorageService{
		resolveFn: func(ctx context.Context, key string) (string, error) {
			if key != "packages/p1/cover/1_walk.jpg" {
				t.Fatalf("unexpected key %q", key)
			}
			return "https://signed.example/walk", nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/file-url?key=packages%2Fp1%2Fcover%2F1_walk.jpg", nil)
	resp := httptest.NewRecorder()

	StorageFileURL(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["url"] != "https://signed.example/walk" {
		t.Fatalf("unexpected url %q", envelope.Data["url"])
	}
}

func TestStorageFileURLNotFound(t *testing.T) {
	svc := &testStorageService{
		resolveFn: func(ctx context.Context, key string) (string, error) {
			return "", pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/file-url?key=packages%2Fmissing", nil)
	resp := httptest.NewRecorder()

	StorageFileURL(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestStorageDiscardTemp(t *testing.T) {
	var gotKey string
	svc := &testStorageService{
		discardFn: func(ctx context.Context, key string) error {
			gotKey = key
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/storage/temp/sess-1/cover/1-walk.jpg", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("*", "sess-1/cover/1-walk.jpg")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	resp := httptest.NewRecorder()

	StorageDiscardTemp(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if gotKey != "temp/sess-1/cover/1-walk.jpg" {
		t.Fatalf("unexpected key %q", gotKey)
	}
}

func TestStorageControllersNilService(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/storage/file-url?key=x", nil)
	resp := httptest.NewRecorder()
	StorageFileURL(nil, testLogger())(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
