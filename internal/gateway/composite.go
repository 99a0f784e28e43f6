package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/match-weather/internal/api"
	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/forecast"
	"github.com/neexbeast/match-weather/internal/schedule"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// fanOutLimit caps concurrent weather calls per composite request.
const fanOutLimit = 8

// MatchForecast pairs an upcoming match with its venue forecast.
type MatchForecast struct {
	City     string                    `json:"city"`
	UID      string                    `json:"uid"`
	Forecast forecast.ForecastResponse `json:"forecast"`
}

// CityWeather is the current weather in a city hosting a match today.
type CityWeather struct {
	City    string                  `json:"city"`
	Weather forecast.CurrentWeather `json:"weather"`
}

// TodayMeteo is the body of /meteo_for_today_matches.
type TodayMeteo struct {
	Weather []CityWeather `json:"weather"`
}

// PastMatchWeather is a past match with the observed weather on its day.
type PastMatchWeather struct {
	City          string          `json:"city"`
	UID           string          `json:"uid"`
	CityName      string          `json:"city_name"`
	Date          caldate.Date    `json:"date"`
	HourlyWeather forecast.Hourly `json:"hourly_weather"`
}

// PastMeteo is the body of /past_matches_meteo.
type PastMeteo struct {
	WeatherHistory []PastMatchWeather `json:"weather_history"`
}

// Composer builds the views that join matches with weather.
type Composer struct {
	matches *Backend
	weather *Backend
	log     *slog.Logger
}

// NewComposer constructs a Composer over the two services.
func NewComposer(matches, weather *Backend, log *slog.Logger) *Composer {
	return &Composer{matches: matches, weather: weather, log: log}
}

// FutureMatches handles /meteo_for_future_matches: every upcoming match
// with a known city, paired with the forecast for its venue and day.
func (c *Composer) FutureMatches(w http.ResponseWriter, r *http.Request) {
	var matches []schedule.Match
	if err := c.getJSON(r.Context(), c.matches, "upcoming_matches", "/upcoming_matches", nil, &matches); err != nil {
		api.WriteError(w, r, c.log, err)
		return
	}

	withCity := filterByCity(matches)
	out, err := fanOut(r.Context(), withCity, func(ctx context.Context, m schedule.Match) (MatchForecast, error) {
		q := url.Values{}
		q.Set("location", m.City)
		q.Set("date", m.Date.String())
		if m.Name != "" {
			q.Set("match_name", m.Name)
		}
		var fc forecast.ForecastResponse
		if err := c.getJSON(ctx, c.weather, "weather_forecast", "/weather_forecast", q, &fc); err != nil {
			return MatchForecast{}, fmt.Errorf("forecast for match %s: %w", m.UID, err)
		}
		return MatchForecast{City: m.City, UID: m.UID, Forecast: fc}, nil
	})
	if err != nil {
		api.WriteError(w, r, c.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, out)
}

// TodayMatches handles /meteo_for_today_matches: current weather for each
// distinct city hosting a match today.
func (c *Composer) TodayMatches(w http.ResponseWriter, r *http.Request) {
	var matches []schedule.Match
	if err := c.getJSON(r.Context(), c.matches, "today_matches", "/today_matches", nil, &matches); err != nil {
		api.WriteError(w, r, c.log, err)
		return
	}

	out, err := fanOut(r.Context(), distinctCities(matches), func(ctx context.Context, city string) (CityWeather, error) {
		q := url.Values{}
		q.Set("city", city)
		var cur forecast.CurrentWeather
		if err := c.getJSON(ctx, c.weather, "current_weather", "/current_weather", q, &cur); err != nil {
			return CityWeather{}, fmt.Errorf("current weather for %s: %w", city, err)
		}
		return CityWeather{City: city, Weather: cur}, nil
	})
	if err != nil {
		api.WriteError(w, r, c.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, TodayMeteo{Weather: out})
}

// PastMatches handles /past_matches_meteo?date=: the latest matches on or
// before date, each with the weather history for its day.
func (c *Composer) PastMatches(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		api.WriteError(w, r, c.log, apperr.Missing("date"))
		return
	}

	q := url.Values{}
	q.Set("target_date", date)
	var matches []schedule.Match
	if err := c.getJSON(r.Context(), c.matches, "past_matches", "/past_matches", q, &matches); err != nil {
		api.WriteError(w, r, c.log, err)
		return
	}

	out, err := fanOut(r.Context(), filterByCity(matches), func(ctx context.Context, m schedule.Match) (PastMatchWeather, error) {
		q := url.Values{}
		q.Set("location", m.City)
		q.Set("date", m.Date.String())
		var h forecast.HistoryResponse
		if err := c.getJSON(ctx, c.weather, "weather_history", "/weather_history", q, &h); err != nil {
			return PastMatchWeather{}, fmt.Errorf("history for match %s: %w", m.UID, err)
		}
		return PastMatchWeather{
			City:          m.City,
			UID:           m.UID,
			CityName:      h.CityName,
			Date:          h.Date,
			HourlyWeather: h.HourlyWeather,
		}, nil
	})
	if err != nil {
		api.WriteError(w, r, c.log, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, PastMeteo{WeatherHistory: out})
}

// getJSON calls a service and decodes a 200 body into dst. A service error
// body keeps its kind so a 400 from the service stays a 400 here.
func (c *Composer) getJSON(ctx context.Context, b *Backend, command, path string, q url.Values, dst any) error {
	resp, err := b.Get(ctx, command, path, q)
	if err != nil {
		return err
	}

	if resp.Status != http.StatusOK {
		var body api.ErrorBody
		if jerr := json.Unmarshal(resp.Body, &body); jerr == nil && body.Code != "" {
			return apperr.New(serviceKind(resp.Status, body.Code), "%s %s: %s", b.Name(), path, body.Error)
		}
		return apperr.New(apperr.KindRemoteUnavailable, "%s %s returned %d", b.Name(), path, resp.Status)
	}

	if err := json.Unmarshal(resp.Body, dst); err != nil {
		return apperr.Wrap(apperr.KindMalformedResponse, err, "decoding %s %s", b.Name(), path)
	}
	return nil
}

// serviceKind maps a service's error code back to a kind. Server-side
// failures of a service are remote failures from the gateway's view.
func serviceKind(status int, code string) apperr.Kind {
	if status >= http.StatusInternalServerError {
		return apperr.KindRemoteUnavailable
	}
	switch k := apperr.Kind(code); k {
	case apperr.KindRequiredFieldMissing, apperr.KindNotFound, apperr.KindDuplicateKeyRace:
		return k
	default:
		return apperr.KindRemoteUnavailable
	}
}

func filterByCity(matches []schedule.Match) []schedule.Match {
	out := make([]schedule.Match, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(m.City) != "" {
			out = append(out, m)
		}
	}
	return out
}

// distinctCities keeps first-seen order.
func distinctCities(matches []schedule.Match) []string {
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		city := strings.TrimSpace(m.City)
		if city == "" {
			continue
		}
		if _, ok := seen[city]; ok {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	return out
}

// fanOut runs fn over items in parallel and returns results in input order.
// The first failure cancels the rest.
func fanOut[T, R any](ctx context.Context, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("gateway fan-out panicked", "recover", rec)
					err = fmt.Errorf("fan-out worker panicked: %v", rec)
				}
			}()
			res, err := fn(gCtx, item)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
