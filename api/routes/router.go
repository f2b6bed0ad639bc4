package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mariogalvez/roamly-backend/api/controllers"
	"github.com/mariogalvez/roamly-backend/api/middleware"
	"github.com/mariogalvez/roamly-backend/internal/media"
	"github.com/mariogalvez/roamly-backend/internal/storage"
	"github.com/mariogalvez/roamly-backend/internal/tours"
	"github.com/mariogalvez/roamly-backend/pkg/config"
	"github.com/mariogalvez/roamly-backend/pkg/db"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
	"github.com/mariogalvez/roamly-backend/pkg/redis"
	"github.com/mariogalvez/roamly-backend/pkg/storage/gcs"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	gcsClient gcs.Pinger,
	idemStore redis.IdempotencyStore,
	storageService storage.Service,
	toursService tours.Service,
	mediaService media.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP, gcsClient))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	maxUploadBytes := cfg.Media.MaxUploadBytes()

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.UploaderContext(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/storage", func(r chi.Router) {
			r.Post("/temp/cover", controllers.StageCover(storageService, logg, maxUploadBytes))
			r.Post("/temp/media", controllers.StageStopMedia(storageService, logg, maxUploadBytes))
			r.Delete("/temp/*", controllers.StorageDiscardTemp(storageService, logg))
			r.With(middleware.RequireUploader(logg)).Post("/finalize", controllers.StorageFinalize(storageService, logg))
			r.Get("/file-url", controllers.StorageFileURL(storageService, logg))
		})

		r.Route("/packages", func(r chi.Router) {
			r.Post("/", controllers.PackageCreate(toursService, logg))
			r.Get("/", controllers.PackageList(toursService, logg))
			r.Get("/{packageID}", controllers.PackageGet(toursService, logg))
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/", controllers.MediaList(mediaService, logg))
			r.Get("/{mediaID}", controllers.MediaGet(mediaService, logg))
			r.Delete("/{mediaID}", controllers.MediaDelete(mediaService, logg))
		})
	})

	return r
}
