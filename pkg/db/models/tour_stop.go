package models

import (
	"time"

	"github.com/google/uuid"
)

// TourStop is one ordered point of interest within a package. Sequence is
// 1-based and unique per package.
type TourStop struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PackageID   uuid.UUID `gorm:"column:package_id;type:uuid;not null;uniqueIndex:idx_tour_stops_package_sequence"`
	Sequence    int       `gorm:"column:sequence;not null;uniqueIndex:idx_tour_stops_package_sequence"`
	Name        string    `gorm:"column:name;not null"`
	Description *string   `gorm:"column:description"`
	Latitude    *float64  `gorm:"column:latitude;type:numeric(9,6)"`
	Longitude   *float64  `gorm:"column:longitude;type:numeric(9,6)"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
