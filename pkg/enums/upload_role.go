package enums

import "fmt"

// UploadRole declares what a staged upload will become once finalized.
type UploadRole string

const (
	UploadRoleCover     UploadRole = "cover"
	UploadRoleStopImage UploadRole = "stop_image"
	UploadRoleStopAudio UploadRole = "stop_audio"
)

var validUploadRoles = []UploadRole{
	UploadRoleCover,
	UploadRoleStopImage,
	UploadRoleStopAudio,
}

// String returns the literal string for the role.
func (r UploadRole) String() string {
	return string(r)
}

// IsValid reports whether the role is known.
func (r UploadRole) IsValid() bool {
	for _, candidate := range validUploadRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsStopScoped reports whether the role targets a tour stop rather than the package itself.
func (r UploadRole) IsStopScoped() bool {
	return r == UploadRoleStopImage || r == UploadRoleStopAudio
}

// MediaKind returns the media kind a finalized upload of this role produces.
func (r UploadRole) MediaKind() MediaKind {
	if r == UploadRoleStopAudio {
		return MediaKindAudio
	}
	return MediaKindImage
}

// ParseUploadRole converts raw input into an UploadRole.
func ParseUploadRole(value string) (UploadRole, error) {
	for _, candidate := range validUploadRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload role %q", value)
}
