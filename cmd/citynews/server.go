package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/deusflow/citynews/internal/config"
	"github.com/deusflow/citynews/internal/metrics"
)

// runner is the part of the application the monitoring server drives.
type runner interface {
	Tenants() []config.Tenant
	RunTenant(ctx context.Context, key string) error
	Stats() map[string]interface{}
}

// newRouter serves health, metrics and a manual run trigger. Triggered runs
// are detached from the request and bounded by the app's own run timeout.
func newRouter(ctx context.Context, app runner, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, app.Stats())
	})
	r.Post("/run/{tenant}", func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "tenant")
		if _, err := config.Find(app.Tenants(), key); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}

		reqID := chimw.GetReqID(r.Context())
		go func() {
			log.Info("manual run triggered", "tenant", key, "request_id", reqID)
			if err := app.RunTenant(ctx, key); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("manual run failed", "tenant", key, "err", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "tenant": key})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	code := http.StatusOK
	if !metrics.Global.Healthy() {
		status = "error"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}
