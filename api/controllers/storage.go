package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/api/middleware"
	"github.com/mariogalvez/roamly-backend/api/responses"
	"github.com/mariogalvez/roamly-backend/api/validators"
	"github.com/mariogalvez/roamly-backend/internal/storage"
	"github.com/mariogalvez/roamly-backend/pkg/enums"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

// multipartMemoryLimit bounds the in-memory portion of a parsed upload;
// larger files spill to temporary disk files.
const multipartMemoryLimit = 10 << 20

// StageCover accepts a multipart cover image and stages it in temporary
// storage under the upload's session or package scope.
func StageCover(svc storage.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage service unavailable"))
			return
		}
		input, err := parseStagedUpload(r, maxUploadBytes, enums.UploadRoleCover)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staged, err := svc.Stage(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, staged)
	}
}

// StageStopMedia accepts a multipart stop image or narration audio. The role
// form field selects which, and stop_index binds the file to a stop position.
func StageStopMedia(svc storage.Service, logg *logger.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage service unavailable"))
			return
		}
		role, err := enums.ParseUploadRole(strings.TrimSpace(r.FormValue("role")))
		if err != nil || !role.IsStopScoped() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "role must be stop_image or stop_audio"))
			return
		}
		input, err := parseStagedUpload(r, maxUploadBytes, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		staged, err := svc.Stage(r.Context(), *input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, staged)
	}
}

func parseStagedUpload(r *http.Request, maxUploadBytes int64, role enums.UploadRole) (*storage.StageInput, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes+multipartMemoryLimit)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file field required")
	}

	input := &storage.StageInput{
		Body:        file,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		Role:        role,
		SessionID:   strings.TrimSpace(r.FormValue("session_id")),
	}

	if raw := strings.TrimSpace(r.FormValue("package_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "package_id must be a uuid")
		}
		input.PackageID = &id
	}
	if role.IsStopScoped() {
		idx, err := strconv.Atoi(strings.TrimSpace(r.FormValue("stop_index")))
		if err != nil || idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stop_index must be zero or greater")
		}
		input.StopIndex = &idx
	}
	if raw := strings.TrimSpace(r.FormValue("duration_seconds")); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration_seconds must be a non-negative number")
		}
		input.DurationSeconds = &seconds
	}
	return input, nil
}

type finalizeRequest struct {
	PackageID  uuid.UUID            `json:"package_id" validate:"required"`
	UploaderID uuid.UUID            `json:"uploader_id"`
	Files      []storage.StagedFile `json:"files" validate:"required,min=1,dive"`
}

// StorageFinalize moves a batch of staged files into their package and
// records the media rows atomically. The media owner is the authenticated
// uploader; a body uploader_id is accepted only when it matches.
func StorageFinalize(svc storage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage service unavailable"))
			return
		}
		uploaderID, err := uuid.Parse(middleware.UploaderIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "uploader identity required"))
			return
		}
		var payload finalizeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.UploaderID != uuid.Nil && payload.UploaderID != uploaderID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "uploader_id does not match the authenticated uploader"))
			return
		}
		finalized, err := svc.Finalize(r.Context(), payload.PackageID, uploaderID, payload.Files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"files": finalized})
	}
}

// StorageFileURL exchanges a storage key for a short-lived read URL.
func StorageFileURL(svc storage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage service unavailable"))
			return
		}
		key := validators.SanitizeString(r.URL.Query().Get("key"), 1024)
		url, err := svc.ResolveURL(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key, "url": url})
	}
}

// StorageDiscardTemp deletes one staged object by its temp/ key. The key is
// the wildcard remainder of the route.
func StorageDiscardTemp(svc storage.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "storage service unavailable"))
			return
		}
		key := "temp/" + chi.URLParam(r, "*")
		if err := svc.DiscardTemp(r.Context(), key); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"key": key, "status": "discarded"})
	}
}
