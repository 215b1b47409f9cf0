package controllers

import (
	"context"
	"net/http"

	"github.com/attarco/attar-backend/api/responses"
	"github.com/attarco/attar-backend/pkg/config"
	pkgerrors "github.com/attarco/attar-backend/pkg/errors"
	"github.com/attarco/attar-backend/pkg/logger"
)

// Pinger is the health-check surface of a backing datasource.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Attar-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]any{"status": "live"})
	}
}

// HealthReady reports ready only when both backing stores answer a ping.
func HealthReady(cfg *config.Config, db, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Attar-Env", cfg.App.Env)

		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready"})
	}
}
