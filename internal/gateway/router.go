package gateway

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/neexbeast/match-weather/internal/api"
)

// NewRouter mounts the forwarding and composite routes on the shared base
// router. /health pings one replica of each service.
func NewRouter(matches, weather *Backend, metrics *api.Metrics, log *slog.Logger) *chi.Mux {
	deps := map[string]api.Pinger{
		matches.Name(): matches,
		weather.Name(): weather,
	}
	r := api.NewBaseRouter(metrics, deps, log)

	r.Route("/weather", func(r chi.Router) {
		r.Get("/forward_weather_forecast", Forward(weather, Route{
			Command:  "weather_forecast",
			Path:     "/weather_forecast",
			Required: []string{"location", "date"},
			Optional: []string{"match_name"},
		}, log))
		r.Get("/get_weather_history", Forward(weather, Route{
			Command:  "weather_history",
			Path:     "/weather_history",
			Required: []string{"location", "date"},
		}, log))
		r.Get("/get_current_weather", Forward(weather, Route{
			Command:  "current_weather",
			Path:     "/current_weather",
			Required: []string{"city"},
		}, log))
		r.Get("/get_astro", Forward(weather, Route{
			Command:  "astro",
			Path:     "/astro",
			Required: []string{"city", "date"},
		}, log))
	})

	r.Route("/matches", func(r chi.Router) {
		r.Get("/upcoming_matches", Forward(matches, Route{
			Command: "upcoming_matches",
			Path:    "/upcoming_matches",
		}, log))
		r.Get("/get_today_matches", Forward(matches, Route{
			Command: "today_matches",
			Path:    "/today_matches",
		}, log))
		r.Get("/past_matches", Forward(matches, Route{
			Command:  "past_matches",
			Path:     "/past_matches",
			Required: []string{"target_date"},
		}, log))
		r.Get("/team_info", Forward(matches, Route{
			Command:  "team_info",
			Path:     "/team_info",
			Required: []string{"game_id"},
		}, log))
	})

	c := NewComposer(matches, weather, log)
	r.Get("/meteo_for_future_matches", c.FutureMatches)
	r.Get("/meteo_for_today_matches", c.TodayMatches)
	r.Get("/past_matches_meteo", c.PastMatches)

	return r
}
