package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mariogalvez/roamly-backend/api/routes"
	"github.com/mariogalvez/roamly-backend/internal/media"
	"github.com/mariogalvez/roamly-backend/internal/storage"
	"github.com/mariogalvez/roamly-backend/internal/tours"
	"github.com/mariogalvez/roamly-backend/pkg/config"
	"github.com/mariogalvez/roamly-backend/pkg/db"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
	"github.com/mariogalvez/roamly-backend/pkg/metrics"
	"github.com/mariogalvez/roamly-backend/pkg/migrate"
	"github.com/mariogalvez/roamly-backend/pkg/redis"
	"github.com/mariogalvez/roamly-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing object storage", err)
		}
	}()

	toursRepo := tours.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())

	storageMetrics := metrics.NewStorageMetrics(prometheus.DefaultRegisterer)
	storageService, err := storage.NewService(
		gcsClient,
		dbClient,
		toursRepo,
		mediaRepo,
		logg,
		storageMetrics,
		cfg.GCS.BucketName,
		cfg.GCS.DownloadURLExpiry,
		cfg.Media.MaxUploadBytes(),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create storage service", err)
		os.Exit(1)
	}

	toursService, err := tours.NewService(toursRepo, mediaRepo, storageService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create tours service", err)
		os.Exit(1)
	}

	mediaService, err := media.NewService(mediaRepo, toursRepo, gcsClient, dbClient, logg, cfg.GCS.BucketName)
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			gcsClient,
			redisClient,
			storageService,
			toursService,
			mediaService,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server stopped")
}
