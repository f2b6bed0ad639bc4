package models

import (
	"time"

	"github.com/google/uuid"
)

// TourStopMedia binds one tour stop to one media record. A (stop, media)
// pair appears at most once.
type TourStopMedia struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StopID    uuid.UUID `gorm:"column:stop_id;type:uuid;not null;uniqueIndex:idx_tour_stop_media_pair"`
	MediaID   uuid.UUID `gorm:"column:media_id;type:uuid;not null;uniqueIndex:idx_tour_stop_media_pair"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName matches the migration; gorm would otherwise pluralize media.
func (TourStopMedia) TableName() string {
	return "tour_stop_media"
}
