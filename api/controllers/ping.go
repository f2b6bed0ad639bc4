package controllers

import (
	"net/http"

	"github.com/mariogalvez/roamly-backend/api/middleware"
	"github.com/mariogalvez/roamly-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "private", "status": "ok"}
		if uploader := middleware.UploaderIDFromContext(r.Context()); uploader != "" {
			payload["uploader_id"] = uploader
		}
		responses.WriteSuccess(w, payload)
	}
}
