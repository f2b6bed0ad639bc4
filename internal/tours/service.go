package tours

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mariogalvez/roamly-backend/pkg/db/models"
	"github.com/mariogalvez/roamly-backend/pkg/enums"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

type packagesRepository interface {
	CreatePackageWithStops(ctx context.Context, pkg *models.TourPackage, stops []models.TourStop) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TourPackage, error)
	ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.TourPackage, error)
}

type mediaFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	ListForStop(ctx context.Context, stopID uuid.UUID) ([]models.Media, error)
}

type urlResolver interface {
	ResolveURL(ctx context.Context, key string) (string, error)
}

// Service exposes tour package authoring and read operations.
type Service interface {
	CreatePackage(ctx context.Context, input CreatePackageInput) (*models.TourPackage, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*PackageDetail, error)
	ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.TourPackage, error)
}

type service struct {
	packages packagesRepository
	media    mediaFinder
	resolver urlResolver
	logg     *logger.Logger
}

// NewService constructs the tours service.
func NewService(packages packagesRepository, media mediaFinder, resolver urlResolver, logg *logger.Logger) (Service, error) {
	if packages == nil {
		return nil, fmt.Errorf("packages repository required")
	}
	if media == nil {
		return nil, fmt.Errorf("media finder required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("url resolver required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{packages: packages, media: media, resolver: resolver, logg: logg}, nil
}

// StopInput describes one stop in creation order.
type StopInput struct {
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

// CreatePackageInput is the authoring payload for a new tour package.
type CreatePackageInput struct {
	GuideID    uuid.UUID   `json:"guide_id" validate:"required"`
	Title      string      `json:"title" validate:"required,max=200"`
	Summary    *string     `json:"summary,omitempty"`
	PriceCents int         `json:"price_cents" validate:"gte=0"`
	Stops      []StopInput `json:"stops" validate:"dive"`
}

// StopMediaView is one media item attached to a stop, with a freshly signed
// read URL when the object is still reachable.
type StopMediaView struct {
	Media models.Media `json:"media"`
	URL   string       `json:"url"`
}

// StopDetail is one stop with its attached media.
type StopDetail struct {
	Stop  models.TourStop `json:"stop"`
	Media []StopMediaView `json:"media"`
}

// PackageDetail is the full read model for one package.
type PackageDetail struct {
	Package  models.TourPackage `json:"package"`
	CoverURL string             `json:"cover_url,omitempty"`
	Stops    []StopDetail       `json:"stops"`
}

// CreatePackage persists a new draft package with its ordered stops.
func (s *service) CreatePackage(ctx context.Context, input CreatePackageInput) (*models.TourPackage, error) {
	if input.GuideID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guide_id required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents must not be negative")
	}
	stops := make([]models.TourStop, 0, len(input.Stops))
	for i, in := range input.Stops {
		if strings.TrimSpace(in.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stops[%d]: name required", i))
		}
		if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stops[%d]: latitude out of range", i))
		}
		if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("stops[%d]: longitude out of range", i))
		}
		stops = append(stops, models.TourStop{
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Latitude:    in.Latitude,
			Longitude:   in.Longitude,
		})
	}

	pkg := &models.TourPackage{
		ID:         uuid.New(),
		GuideID:    input.GuideID,
		Title:      strings.TrimSpace(input.Title),
		Summary:    input.Summary,
		PriceCents: input.PriceCents,
		Status:     enums.PackageStatusDraft,
	}
	if err := s.packages.CreatePackageWithStops(ctx, pkg, stops); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create package")
	}
	s.logg.Info(s.logg.WithPackageID(ctx, pkg.ID.String()), "tour package created")
	return pkg, nil
}

// GetPackage loads one package with stops, attached media, and read URLs.
// URL resolution is best effort; a media row whose object has gone missing
// falls back to its durable URL rather than failing the whole read.
func (s *service) GetPackage(ctx context.Context, id uuid.UUID) (*PackageDetail, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	pkg, err := s.packages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load package")
	}

	detail := &PackageDetail{Package: *pkg}
	if pkg.CoverMediaID != nil {
		cover, err := s.media.FindByID(ctx, *pkg.CoverMediaID)
		switch {
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cover media")
		case err == nil:
			detail.CoverURL = s.resolveOrFallback(ctx, cover)
		}
	}
	for _, stop := range pkg.Stops {
		attached, err := s.media.ListForStop(ctx, stop.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stop media")
		}
		views := make([]StopMediaView, 0, len(attached))
		for _, m := range attached {
			views = append(views, StopMediaView{Media: m, URL: s.resolveOrFallback(ctx, &m)})
		}
		detail.Stops = append(detail.Stops, StopDetail{Stop: stop, Media: views})
	}
	return detail, nil
}

// ListByGuide returns a guide's packages without stop or media expansion.
func (s *service) ListByGuide(ctx context.Context, guideID uuid.UUID) ([]models.TourPackage, error) {
	if guideID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guide id required")
	}
	pkgs, err := s.packages.ListByGuide(ctx, guideID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list packages")
	}
	return pkgs, nil
}

func (s *service) resolveOrFallback(ctx context.Context, m *models.Media) string {
	url, err := s.resolver.ResolveURL(ctx, m.StorageKey)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "storage_key", m.StorageKey), "read url resolution failed, using durable url")
		return m.URL
	}
	return url
}
