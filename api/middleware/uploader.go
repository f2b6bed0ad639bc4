package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mariogalvez/roamly-backend/api/responses"
	pkgerrors "github.com/mariogalvez/roamly-backend/pkg/errors"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
)

const uploaderHeader = "X-Uploader-Id"

// UploaderContext binds the caller identity from the X-Uploader-Id header
// onto the request context. The header must be a UUID when present.
func UploaderContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(uploaderHeader))
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Uploader-Id must be a UUID"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUploaderID(r.Context(), id.String())))
		})
	}
}

// RequireUploader rejects requests that reached a protected route without
// an uploader identity.
func RequireUploader(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UploaderIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "uploader identity required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
