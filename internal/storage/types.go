package storage

import (
	"io"

	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/pkg/enums"
)

// StageInput carries a single file to be staged into temporary storage.
// Exactly one of SessionID and PackageID must be set, the former for uploads
// made before the package exists.
type StageInput struct {
	Body            io.Reader
	FileName        string
	ContentType     string
	SizeBytes       int64
	Role            enums.UploadRole
	SessionID       string
	PackageID       *uuid.UUID
	StopIndex       *int
	DurationSeconds *float64
	Width           *int
	Height          *int
}

// StagedFile is the client-held reference to a staged object. It is both the
// response of the staging endpoints and the request payload of finalization.
type StagedFile struct {
	TempID          uuid.UUID        `json:"temp_id"`
	Key             string           `json:"key" validate:"required"`
	Role            enums.UploadRole `json:"role" validate:"required"`
	MediaKind       enums.MediaKind  `json:"media_kind"`
	FileName        string           `json:"file_name"`
	Format          string           `json:"format"`
	SizeBytes       int64            `json:"size_bytes"`
	DurationSeconds *float64         `json:"duration_seconds,omitempty"`
	StopIndex       *int             `json:"stop_index,omitempty"`
	URL             string           `json:"url,omitempty"`
}

// FinalizedMedia reports the durable identity of one finalized file.
type FinalizedMedia struct {
	MediaID    uuid.UUID        `json:"media_id"`
	StorageKey string           `json:"storage_key"`
	URL        string           `json:"url"`
	Role       enums.UploadRole `json:"role"`
	StopIndex  *int             `json:"stop_index,omitempty"`
}
