package tours

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mariogalvez/roamly-backend/internal/repo"
	"github.com/mariogalvez/roamly-backend/pkg/db/models"
)

// Repository exposes tour package persistence operations.
type Repository struct {
	base repo.Base
}

// NewRepository constructs a tours repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// CreatePackageWithStops persists a package and its ordered stops atomically.
// Stop sequences are assigned here, 1-based in slice order.
func (r *Repository) CreatePackageWithStops(ctx context.Context, pkg *models.TourPackage, stops []models.TourStop) error {
	return r.base.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if pkg.ID == uuid.Nil {
			pkg.ID = uuid.New()
		}
		if err := tx.Create(pkg).Error; err != nil {
			return fmt.Errorf("create package: %w", err)
		}
		for i := range stops {
			if stops[i].ID == uuid.Nil {
				stops[i].ID = uuid.New()
			}
			stops[i].PackageID = pkg.ID
			stops[i].Sequence = i + 1
		}
		if len(stops) > 0 {
			if err := tx.Create(&stops).Error; err != nil {
				return fmt.Errorf("create stops: %w", err)
			}
		}
		pkg.Stops = stops
		return nil
	})
}

// FindByID retrieves a package with its stops ordered by sequence.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TourPackage, error) {
	var pkg models.TourPackage
	err := r.base.DB(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence asc")
		}).
		First(&pkg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ListByGuide returns the packages owned by one guide, newest first.
func (r *Repository) ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.TourPackage, error) {
	var pkgs []models.TourPackage
	err := r.base.DB(ctx).
		Where("guide_id = ?", guideID).
		Order("created_at desc").
		Find(&pkgs).Error
	return pkgs, err
}

// ListForPackageWithTx loads a package's stops ordered by sequence on the
// supplied transaction.
func (r *Repository) ListForPackageWithTx(tx *gorm.DB, packageID uuid.UUID) ([]models.TourStop, error) {
	var stops []models.TourStop
	err := r.base.Conn(nil, tx).
		Where("package_id = ?", packageID).
		Order("sequence asc").
		Find(&stops).Error
	return stops, err
}

// SetCoverWithTx points a package at its cover media on the supplied
// transaction. A missing package is reported as gorm.ErrRecordNotFound.
func (r *Repository) SetCoverWithTx(tx *gorm.DB, packageID, mediaID uuid.UUID) error {
	res := r.base.Conn(nil, tx).
		Model(&models.TourPackage{}).
		Where("id = ?", packageID).
		Update("cover_media_id", mediaID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearCover detaches the cover reference from any package pointing at the
// given media. Used when that media record is deleted.
func (r *Repository) ClearCover(ctx context.Context, tx *gorm.DB, mediaID uuid.UUID) error {
	return r.base.Conn(ctx, tx).
		Model(&models.TourPackage{}).
		Where("cover_media_id = ?", mediaID).
		Update("cover_media_id", nil).Error
}

// Exists reports whether a package row is present.
func (r *Repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.base.DB(ctx).
		Model(&models.TourPackage{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return count > 0, nil
}
