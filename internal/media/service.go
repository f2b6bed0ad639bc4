package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mariogalvez/roamly-backend/pkg/db/models"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

type mediaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListByUploader(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error)
	DeleteWithTx(tx *gorm.DB, id uuid.UUID) error
}

type coverClearer interface {
	ClearCover(ctx context.Context, tx *gorm.DB, mediaID uuid.UUID) error
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes read and delete operations over finalized media.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListByUploader(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   mediaRepository
	covers coverClearer
	store  objectDeleter
	db     txRunner
	logg   *logger.Logger
	bucket string
}

// NewService constructs the media service.
func NewService(repo mediaRepository, covers coverClearer, store objectDeleter, db txRunner, logg *logger.Logger, bucket string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media repository required")
	}
	if covers == nil {
		return nil, fmt.Errorf("cover clearer required")
	}
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	return &service{repo: repo, covers: covers, store: store, db: db, logg: logg, bucket: bucket}, nil
}

// Get loads one media record.
func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media id required")
	}
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media")
	}
	return m, nil
}

// ListByUploader returns the media one uploader owns, newest first.
func (s *service) ListByUploader(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error) {
	if uploaderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploader id required")
	}
	items, err := s.repo.ListByUploader(ctx, uploaderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list media")
	}
	return items, nil
}

// Delete removes a media record, detaches any cover and stop references, and
// then removes the backing object. The object delete runs after commit so a
// storage outage never leaves a dangling row pointing at a live object.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.covers.ClearCover(ctx, tx, id); err != nil {
			return fmt.Errorf("clear cover reference: %w", err)
		}
		return s.repo.DeleteWithTx(tx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete media")
	}

	if err := s.store.DeleteObject(ctx, s.bucket, m.StorageKey); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "storage_key", m.StorageKey), "media object delete failed after row removal")
	}
	s.logg.Info(s.logg.WithField(ctx, "media_id", id.String()), "media deleted")
	return nil
}
