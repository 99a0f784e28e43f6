package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by *pgxpool.Pool and *cache.Cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status handles GET /status: a fixed liveness answer.
func Status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "OK")
}

// HealthHandlerFunc returns an http.HandlerFunc that pings each named
// dependency. It answers 200 when all respond and 503 otherwise.
func HealthHandlerFunc(deps map[string]Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{}

		for name, dep := range deps {
			body[name] = "ok"
			if err := dep.Ping(ctx); err != nil {
				log.Error("health check: ping failed", "dependency", name, "err", err)
				body[name] = "error"
				status = http.StatusServiceUnavailable
			}
		}

		body["status"] = "ok"
		if status != http.StatusOK {
			body["status"] = "degraded"
		}

		WriteJSON(w, status, body)
	}
}
