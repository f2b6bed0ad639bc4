package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mariogalvez/roamly-backend/pkg/db/models"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
	"github.com/mariogalvez/roamly-backend/pkg/metrics"
)

type objectStore interface {
	WriteObject(ctx context.Context, bucket, object, contentType string, body io.Reader) error
	CopyObject(ctx context.Context, bucket, src, dst string) error
	DeleteObject(ctx context.Context, bucket, object string) error
	ObjectExists(ctx context.Context, bucket, object string) (bool, error)
	SignedReadURL(bucket, object string, expires time.Duration) (string, error)
	PublicURL(bucket, object string) string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stopsRepository interface {
	ListForPackageWithTx(tx *gorm.DB, packageID uuid.UUID) ([]models.TourStop, error)
	SetCoverWithTx(tx *gorm.DB, packageID, mediaID uuid.UUID) error
}

type mediaRepository interface {
	CreateWithTx(tx *gorm.DB, media *models.Media) error
	LinkStopWithTx(tx *gorm.DB, stopID, mediaID uuid.UUID) error
}

// Service exposes the two-phase media lifecycle: staging into temporary
// storage, finalizing into a package, and resolving read access afterwards.
type Service interface {
	Stage(ctx context.Context, input StageInput) (*StagedFile, error)
	Finalize(ctx context.Context, packageID, uploaderID uuid.UUID, refs []StagedFile) ([]FinalizedMedia, error)
	ResolveURL(ctx context.Context, key string) (string, error)
	DiscardTemp(ctx context.Context, key string) error
}

type service struct {
	store          objectStore
	db             txRunner
	stops          stopsRepository
	media          mediaRepository
	logg           *logger.Logger
	storageMetrics *metrics.StorageMetrics
	bucket         string
	readTTL        time.Duration
	maxUploadBytes int64
	now            func() time.Time
}

// NewService constructs the storage workflow service.
func NewService(store objectStore, db txRunner, stops stopsRepository, media mediaRepository, logg *logger.Logger, sm *metrics.StorageMetrics, bucket string, readTTL time.Duration, maxUploadBytes int64) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if stops == nil {
		return nil, fmt.Errorf("stops repository required")
	}
	if media == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	if readTTL <= 0 {
		return nil, fmt.Errorf("read ttl must be positive")
	}
	if maxUploadBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	return &service{
		store:          store,
		db:             db,
		stops:          stops,
		media:          media,
		logg:           logg,
		storageMetrics: sm,
		bucket:         bucket,
		readTTL:        readTTL,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
	}, nil
}

// Stage writes one upload into temporary storage and returns the reference
// the client later submits for finalization. Nothing is recorded in the
// database at this point.
func (s *service) Stage(ctx context.Context, input StageInput) (*StagedFile, error) {
	if err := s.validateStageInput(input); err != nil {
		return nil, err
	}

	scopeID := input.SessionID
	if input.PackageID != nil {
		scopeID = input.PackageID.String()
	}
	stopIndex := 0
	if input.StopIndex != nil {
		stopIndex = *input.StopIndex
	}
	key := BuildTempKey(scopeID, input.Role, stopIndex, s.now(), input.FileName)

	if err := s.store.WriteObject(ctx, s.bucket, key, input.ContentType, input.Body); err != nil {
		// The write may have partially landed. Best effort cleanup so the
		// sweeper has less to do; the client retries with a fresh key anyway.
		if delErr := s.store.DeleteObject(ctx, s.bucket, key); delErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "key", key), "stage cleanup failed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write staged object")
	}
	s.storageMetrics.AddStagedBytes(input.SizeBytes)

	staged := &StagedFile{
		TempID:          uuid.New(),
		Key:             key,
		Role:            input.Role,
		MediaKind:       input.Role.MediaKind(),
		FileName:        sanitizeFileName(input.FileName),
		Format:          fileFormat(input.FileName),
		SizeBytes:       input.SizeBytes,
		DurationSeconds: input.DurationSeconds,
	}
	if input.Role.IsStopScoped() {
		staged.StopIndex = input.StopIndex
	}
	if url, err := s.store.SignedReadURL(s.bucket, key, s.readTTL); err == nil {
		staged.URL = url
	} else {
		s.logg.Warn(s.logg.WithField(ctx, "key", key), "preview url signing failed")
	}
	return staged, nil
}

func (s *service) validateStageInput(input StageInput) error {
	if input.Body == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file body required")
	}
	if input.SizeBytes <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "file size required")
	}
	if input.SizeBytes > s.maxUploadBytes {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file exceeds %d byte limit", s.maxUploadBytes))
	}
	if strings.TrimSpace(input.FileName) == "" || sanitizeFileName(input.FileName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "file name required")
	}
	if !input.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown upload role %q", input.Role))
	}
	hasSession := strings.TrimSpace(input.SessionID) != ""
	hasPackage := input.PackageID != nil && *input.PackageID != uuid.Nil
	if hasSession == hasPackage {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of session_id and package_id required")
	}
	if input.Role.IsStopScoped() {
		if input.StopIndex == nil || *input.StopIndex < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stop_index must be zero or greater")
		}
	}
	return nil
}

// ResolveURL issues a short-lived read URL for a stored object, verifying the
// object still exists so callers get a not-found instead of a signed URL that
// 404s downstream.
func (s *service) ResolveURL(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "key required")
	}
	exists, err := s.store.ObjectExists(ctx, s.bucket, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "check object")
	}
	if !exists {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
	}
	url, err := s.store.SignedReadURL(s.bucket, key, s.readTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "sign read url")
	}
	return url, nil
}

// DiscardTemp deletes one staged object. Only the temporary namespace is
// reachable through this path; finalized objects are removed via media
// deletion, which also tears down the database rows.
func (s *service) DiscardTemp(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, tempPrefix) || key == tempPrefix {
		return pkgerrors.New(pkgerrors.CodeValidation, "key must reference a staged object")
	}
	if err := s.store.DeleteObject(ctx, s.bucket, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "delete staged object")
	}
	return nil
}
