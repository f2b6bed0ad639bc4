package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/pkg/enums"
)

// TourPackage is a guided-tour listing authored by a guide.
type TourPackage struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	GuideID      uuid.UUID           `gorm:"column:guide_id;type:uuid;not null"`
	Title        string              `gorm:"column:title;not null"`
	Summary      *string             `gorm:"column:summary"`
	PriceCents   int                 `gorm:"column:price_cents;not null;default:0"`
	Status       enums.PackageStatus `gorm:"column:status;not null;default:draft"`
	CoverMediaID *uuid.UUID          `gorm:"column:cover_media_id;type:uuid"`
	Stops        []TourStop          `gorm:"foreignKey:PackageID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
