package controllers

import (
	"net/http"

	"github.com/mariogalvez/roamly-backend/api/responses"
	"github.com/mariogalvez/roamly-backend/api/validators"
	"github.com/mariogalvez/roamly-backend/internal/tours"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

// PackageCreate registers a new draft tour package with its ordered stops.
func PackageCreate(svc tours.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tours service unavailable"))
			return
		}
		var payload tours.CreatePackageInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pkg, err := svc.CreatePackage(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, pkg)
	}
}

// PackageGet returns one package with stops, media, and read URLs.
func PackageGet(svc tours.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tours service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "packageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.GetPackage(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// PackageList returns the packages owned by the guide named in the query.
func PackageList(svc tours.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tours service unavailable"))
			return
		}
		guideID, err := validators.ParseUUIDQuery(r, "guide_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pkgs, err := svc.ListByGuide(r.Context(), guideID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"packages": pkgs})
	}
}
