package api

import (
	"log/slog"
	"net/http"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/cache"
	"github.com/neexbeast/match-weather/internal/forecast"
)

const (
	nsCurrent = "current"
	nsAstro   = "astro"
)

// WeatherHandlers serves forecasts, history and the cached lookups.
type WeatherHandlers struct {
	syncer  WeatherSyncer
	store   WeatherStore
	fetcher WeatherFetcher
	cache   Cache
	log     *slog.Logger
}

// NewWeatherHandlers constructs WeatherHandlers with all required dependencies.
func NewWeatherHandlers(syncer WeatherSyncer, store WeatherStore, fetcher WeatherFetcher, cache Cache, log *slog.Logger) *WeatherHandlers {
	return &WeatherHandlers{
		syncer:  syncer,
		store:   store,
		fetcher: fetcher,
		cache:   cache,
		log:     log,
	}
}

// Forecast handles GET /weather_forecast?location=&date=[&match_name=].
// Fetches the forecast, overwrites the stored row and returns it.
func (h *WeatherHandlers) Forecast(w http.ResponseWriter, r *http.Request) {
	var q weatherQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	resp, _, err := h.syncer.SyncForecast(r.Context(), forecast.NewKey(q.Location, mustDate(q.Date), q.MatchName))
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// History handles GET /weather_history?location=&date=.
func (h *WeatherHandlers) History(w http.ResponseWriter, r *http.Request) {
	var q weatherQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	resp, _, err := h.syncer.SyncHistory(r.Context(), forecast.NewKey(q.Location, mustDate(q.Date), q.MatchName))
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Stored handles GET /weather?location=&date=[&match_name=]: a point
// lookup with no upstream call.
func (h *WeatherHandlers) Stored(w http.ResponseWriter, r *http.Request) {
	var q weatherQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	key := forecast.NewKey(q.Location, mustDate(q.Date), q.MatchName)
	rec, err := h.store.WeatherByKey(r.Context(), key)
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	if rec == nil {
		WriteError(w, r, h.log, apperr.New(apperr.KindNotFound, "no weather stored for %s", key))
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Current handles GET /current_weather?city=.
func (h *WeatherHandlers) Current(w http.ResponseWriter, r *http.Request) {
	var q cityQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	key := cache.Key(nsCurrent, q.City)
	var cur forecast.CurrentWeather
	if h.cached(r, key, &cur) {
		WriteJSON(w, http.StatusOK, cur)
		return
	}

	cur, err := h.fetcher.Current(r.Context(), q.City)
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	h.store2cache(r, key, cur)
	WriteJSON(w, http.StatusOK, cur)
}

// Astro handles GET /astro?city=&date=.
func (h *WeatherHandlers) Astro(w http.ResponseWriter, r *http.Request) {
	var q cityDateQuery
	if err := bindQuery(r, &q); err != nil {
		WriteError(w, r, h.log, err)
		return
	}

	day := mustDate(q.Date)
	key := cache.Key(nsAstro, q.City, day.String())
	var astro forecast.Astro
	if h.cached(r, key, &astro) {
		WriteJSON(w, http.StatusOK, astro)
		return
	}

	astro, err := h.fetcher.Astro(r.Context(), q.City, day)
	if err != nil {
		WriteError(w, r, h.log, err)
		return
	}
	h.store2cache(r, key, astro)
	WriteJSON(w, http.StatusOK, astro)
}

func (h *WeatherHandlers) cached(r *http.Request, key string, dst any) bool {
	hit, err := h.cache.Get(r.Context(), key, dst)
	if err != nil {
		h.log.Error("cache get failed", "key", key, "err", err)
		return false
	}
	return hit
}

func (h *WeatherHandlers) store2cache(r *http.Request, key string, v any) {
	if err := h.cache.Set(r.Context(), key, v); err != nil {
		h.log.Warn("cache set failed", "key", key, "err", err)
	}
}
