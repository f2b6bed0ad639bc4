package media

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mariogalvez/roamly-backend/internal/repo"
	"github.com/mariogalvez/roamly-backend/pkg/db/models"
)

// Repository exposes media metadata persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a media repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// CreateWithTx persists a media record on the supplied transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, media *models.Media) error {
	return r.base.Conn(nil, tx).Create(media).Error
}

// LinkStopWithTx binds a media record to a tour stop on the supplied
// transaction.
func (r *Repository) LinkStopWithTx(tx *gorm.DB, stopID, mediaID uuid.UUID) error {
	link := models.TourStopMedia{
		ID:      uuid.New(),
		StopID:  stopID,
		MediaID: mediaID,
	}
	return r.base.Conn(nil, tx).Create(&link).Error
}

// FindByID retrieves a media record.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var m models.Media
	if err := r.base.DB(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListByUploader returns the media owned by one uploader, newest first.
func (r *Repository) ListByUploader(ctx context.Context, uploaderID uuid.UUID) ([]models.Media, error) {
	var items []models.Media
	err := r.base.DB(ctx).
		Where("uploader_id = ?", uploaderID).
		Order("created_at desc").
		Find(&items).Error
	return items, err
}

// ListForStop returns the media linked to one stop, oldest link first.
func (r *Repository) ListForStop(ctx context.Context, stopID uuid.UUID) ([]models.Media, error) {
	var items []models.Media
	err := r.base.DB(ctx).
		Joins("JOIN tour_stop_media ON tour_stop_media.media_id = media.id").
		Where("tour_stop_media.stop_id = ?", stopID).
		Order("tour_stop_media.created_at asc").
		Find(&items).Error
	return items, err
}

// ExistsByStorageKey reports whether any media record owns the storage key.
func (r *Repository) ExistsByStorageKey(ctx context.Context, key string) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.Media{}).
		Where("storage_key = ?", key).
		Count(&count).Error
	return count > 0, err
}

// DeleteWithTx removes a media record and its stop links on the supplied
// transaction.
func (r *Repository) DeleteWithTx(tx *gorm.DB, id uuid.UUID) error {
	conn := r.base.Conn(nil, tx)
	if err := conn.Where("media_id = ?", id).Delete(&models.TourStopMedia{}).Error; err != nil {
		return err
	}
	return conn.Where("id = ?", id).Delete(&models.Media{}).Error
}
