package controllers

import (
	"context"
	"net/http"

	"github.com/yawasante/databundles-backend/api/responses"
	"github.com/yawasante/databundles-backend/pkg/config"
)

// Pinger is implemented by the database and Redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DataBundles-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every dependency answers a ping.
func HealthReady(cfg *config.Config, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DataBundles-Env", cfg.App.Env)

		checks := map[string]string{}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "unconfigured"
				ready = false
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				checks[name] = "down"
				ready = false
				continue
			}
			checks[name] = "up"
		}

		status := "ready"
		httpStatus := http.StatusOK
		if !ready {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, httpStatus, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}
