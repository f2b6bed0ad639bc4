package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/pkg/enums"
)

// Media is the permanent record for one finalized storage object. Rows are
// created only by finalization and never mutated afterwards.
type Media struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	StorageKey      string          `gorm:"column:storage_key;not null;unique"`
	URL             string          `gorm:"column:url;not null"`
	Kind            enums.MediaKind `gorm:"column:kind;not null"`
	UploaderID      uuid.UUID       `gorm:"column:uploader_id;type:uuid;not null"`
	FileName        string          `gorm:"column:file_name;not null"`
	Format          string          `gorm:"column:format;not null"`
	SizeBytes       int64           `gorm:"column:size_bytes;not null"`
	DurationSeconds *float64        `gorm:"column:duration_seconds"`
	Width           *int            `gorm:"column:width"`
	Height          *int            `gorm:"column:height"`
	BitrateKbps     *int            `gorm:"column:bitrate_kbps"`
	SampleRateHz    *int            `gorm:"column:sample_rate_hz"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the table singular; "media" already reads as a plural.
func (Media) TableName() string {
	return "media"
}
