package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// RequestsPerMinute is the per-IP rate limit applied to every service.
const RequestsPerMinute = 60

// NewBaseRouter builds the chi router every service shares: panic recovery,
// request IDs, per-IP rate limiting, request counting and the
// /status, /health and /metrics endpoints.
func NewBaseRouter(metrics *Metrics, deps map[string]Pinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(RequestsPerMinute, time.Minute))
	r.Use(metrics.Middleware)

	r.Get("/status", Status)
	r.Get("/health", HealthHandlerFunc(deps, log))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// NewMatchesRouter mounts the match routes. Only POST /update needs the
// bearer token.
func NewMatchesRouter(h *MatchesHandlers, token string, metrics *Metrics, deps map[string]Pinger, log *slog.Logger) *chi.Mux {
	r := NewBaseRouter(metrics, deps, log)

	r.Get("/upcoming_matches", h.UpcomingMatches)
	r.Get("/today_matches", h.TodayMatches)
	r.Get("/past_matches", h.PastMatches)
	r.Get("/team_info", h.TeamInfo)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Post("/update", h.Update)
	})

	return r
}

// NewWeatherRouter mounts the weather routes.
func NewWeatherRouter(h *WeatherHandlers, metrics *Metrics, deps map[string]Pinger, log *slog.Logger) *chi.Mux {
	r := NewBaseRouter(metrics, deps, log)

	r.Get("/weather_forecast", h.Forecast)
	r.Get("/weather_history", h.History)
	r.Get("/weather", h.Stored)
	r.Get("/current_weather", h.Current)
	r.Get("/astro", h.Astro)

	return r
}
