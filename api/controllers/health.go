package controllers

import (
	"net/http"

	"github.com/mariogalvez/roamly-backend/api/responses"
	"github.com/mariogalvez/roamly-backend/pkg/config"
	"github.com/mariogalvez/roamly-backend/pkg/db"
	"github.com/mariogalvez/roamly-backend/pkg/logger"
	"github.com/mariogalvez/roamly-backend/pkg/redis"
	"github.com/mariogalvez/roamly-backend/pkg/storage/gcs"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Roamly-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each backing dependency and reports per-dependency
// status. Any failing check yields a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger, gcsP gcs.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Roamly-Env", cfg.App.Env)

		status := map[string]string{"status": "ready"}
		healthy := true

		check := func(name string, ping func() error) {
			if ping == nil {
				return
			}
			if err := ping(); err != nil {
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "readiness check failed", err)
				}
				status[name] = "unavailable"
				healthy = false
				return
			}
			status[name] = "ok"
		}

		if dbP != nil {
			check("database", func() error { return dbP.Ping(r.Context()) })
		}
		if redisP != nil {
			check("redis", func() error { return redisP.Ping(r.Context()) })
		}
		if gcsP != nil {
			check("storage", func() error { return gcsP.Ping(r.Context()) })
		}

		if !healthy {
			status["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
