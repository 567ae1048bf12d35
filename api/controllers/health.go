package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/quotecart/api/responses"
	"github.com/angelmondragon/quotecart/pkg/config"
	pkgerrors "github.com/angelmondragon/quotecart/pkg/errors"
	"github.com/angelmondragon/quotecart/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-QuoteCart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency. Nil pingers are reported as disabled.
func HealthReady(cfg *config.Config, logg *logger.Logger, dependencies map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-QuoteCart-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(dependencies))
		failed := false
		for name, pinger := range dependencies {
			if pinger == nil {
				checks[name] = "disabled"
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				failed = true
				checks[name] = "unavailable"
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"dependency": name, "error": err.Error()}), "readiness check failed")
				}
				continue
			}
			checks[name] = "ok"
		}

		if failed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
