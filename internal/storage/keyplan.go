package storage

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/pkg/enums"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
)

const (
	tempPrefix      = "temp/"
	permanentPrefix = "packages/"
)

// BuildTempKey derives the temporary storage key for one staged upload.
// The timestamp component keeps concurrent uploads of the same filename from
// colliding without any coordination service.
func BuildTempKey(scopeID string, role enums.UploadRole, stopIndex int, at time.Time, fileName string) string {
	name := sanitizeFileName(fileName)
	if role.IsStopScoped() {
		medium := "image"
		if role == enums.UploadRoleStopAudio {
			medium = "audio"
		}
		return fmt.Sprintf("%s%s/stop_%d/%s/%d-%s", tempPrefix, scopeID, stopIndex, medium, at.UnixMilli(), name)
	}
	return fmt.Sprintf("%s%s/cover/%d-%s", tempPrefix, scopeID, at.UnixMilli(), name)
}

// PermanentKey maps a staged reference onto its final storage key under the
// target package. The timestamp is taken at finalization time, not staging
// time, so a retried finalization never collides with an earlier attempt.
func PermanentKey(ref StagedFile, packageID uuid.UUID, at time.Time) (string, error) {
	tail := fileNameTail(ref.Key)
	switch ref.Role {
	case enums.UploadRoleCover:
		return fmt.Sprintf("%s%s/cover/%d_%s", permanentPrefix, packageID, at.UnixMilli(), tail), nil
	case enums.UploadRoleStopAudio:
		if ref.StopIndex == nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "stop_index required for stop media")
		}
		return fmt.Sprintf("%s%s/stops/%d/audio/%d_%s", permanentPrefix, packageID, *ref.StopIndex, at.UnixMilli(), tail), nil
	case enums.UploadRoleStopImage:
		if ref.StopIndex == nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "stop_index required for stop media")
		}
		return fmt.Sprintf("%s%s/stops/%d/images/%d_%s", permanentPrefix, packageID, *ref.StopIndex, at.UnixMilli(), tail), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown upload role %q", ref.Role))
	}
}

// fileNameTail returns the client-visible filename portion of a storage key,
// preserved through finalization for debuggability.
func fileNameTail(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	if clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}

// fileFormat extracts a lowercase extension-style format from a filename.
func fileFormat(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	return strings.ToLower(ext)
}
