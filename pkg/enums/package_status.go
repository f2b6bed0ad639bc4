package enums

import "fmt"

// PackageStatus tracks a tour package through authoring and moderation.
type PackageStatus string

const (
	PackageStatusDraft         PackageStatus = "draft"
	PackageStatusPendingReview PackageStatus = "pending_review"
	PackageStatusPublished     PackageStatus = "published"
	PackageStatusRejected      PackageStatus = "rejected"
)

var validPackageStatuses = []PackageStatus{
	PackageStatusDraft,
	PackageStatusPendingReview,
	PackageStatusPublished,
	PackageStatusRejected,
}

func (s PackageStatus) String() string {
	return string(s)
}

func (s PackageStatus) IsValid() bool {
	for _, candidate := range validPackageStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePackageStatus converts raw input into a PackageStatus.
func ParsePackageStatus(value string) (PackageStatus, error) {
	for _, candidate := range validPackageStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid package status %q", value)
}
