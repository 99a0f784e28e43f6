package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/neexbeast/match-weather/internal/api"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/forecast"
	"github.com/neexbeast/match-weather/internal/schedule"
	"github.com/neexbeast/match-weather/internal/syncer"
)

// ---- mock implementations ----

type mockMatchStore struct {
	byUIDFn   func(ctx context.Context, uid string) (*schedule.Match, error)
	betweenFn func(ctx context.Context, from, to caldate.Date) ([]schedule.Match, error)
	latestFn  func(ctx context.Context, day caldate.Date, limit int) ([]schedule.Match, error)
}

func (m *mockMatchStore) MatchByUID(ctx context.Context, uid string) (*schedule.Match, error) {
	return m.byUIDFn(ctx, uid)
}
func (m *mockMatchStore) MatchesBetween(ctx context.Context, from, to caldate.Date) ([]schedule.Match, error) {
	return m.betweenFn(ctx, from, to)
}
func (m *mockMatchStore) LatestMatches(ctx context.Context, day caldate.Date, limit int) ([]schedule.Match, error) {
	return m.latestFn(ctx, day, limit)
}

type mockScheduleSyncer struct {
	syncDayFn func(ctx context.Context, day caldate.Date) (schedule.DayReport, error)
}

func (m *mockScheduleSyncer) SyncDay(ctx context.Context, day caldate.Date) (schedule.DayReport, error) {
	return m.syncDayFn(ctx, day)
}

// mockCache misses and accepts writes unless a func is set.
type mockCache struct {
	getFn      func(ctx context.Context, key string, dst any) (bool, error)
	setFn      func(ctx context.Context, key string, v any) error
	deleteNSFn func(ctx context.Context, namespace string) error
}

func (m *mockCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if m.getFn == nil {
		return false, nil
	}
	return m.getFn(ctx, key, dst)
}
func (m *mockCache) Set(ctx context.Context, key string, v any) error {
	if m.setFn == nil {
		return nil
	}
	return m.setFn(ctx, key, v)
}
func (m *mockCache) DeleteNamespace(ctx context.Context, namespace string) error {
	if m.deleteNSFn == nil {
		return nil
	}
	return m.deleteNSFn(ctx, namespace)
}

type mockWeatherSyncer struct {
	forecastFn func(ctx context.Context, key forecast.Key) (forecast.ForecastResponse, syncer.Outcome, error)
	historyFn  func(ctx context.Context, key forecast.Key) (forecast.HistoryResponse, syncer.Outcome, error)
}

func (m *mockWeatherSyncer) SyncForecast(ctx context.Context, key forecast.Key) (forecast.ForecastResponse, syncer.Outcome, error) {
	return m.forecastFn(ctx, key)
}
func (m *mockWeatherSyncer) SyncHistory(ctx context.Context, key forecast.Key) (forecast.HistoryResponse, syncer.Outcome, error) {
	return m.historyFn(ctx, key)
}

type mockWeatherStore struct {
	byKeyFn func(ctx context.Context, key forecast.Key) (*forecast.Record, error)
}

func (m *mockWeatherStore) WeatherByKey(ctx context.Context, key forecast.Key) (*forecast.Record, error) {
	return m.byKeyFn(ctx, key)
}

type mockWeatherFetcher struct {
	currentFn func(ctx context.Context, city string) (forecast.CurrentWeather, error)
	astroFn   func(ctx context.Context, city string, day caldate.Date) (forecast.Astro, error)
}

func (m *mockWeatherFetcher) Current(ctx context.Context, city string) (forecast.CurrentWeather, error) {
	return m.currentFn(ctx, city)
}
func (m *mockWeatherFetcher) Astro(ctx context.Context, city string, day caldate.Date) (forecast.Astro, error) {
	return m.astroFn(ctx, city, day)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

const testToken = "secret-token"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func healthyDeps() map[string]api.Pinger {
	return map[string]api.Pinger{"db": &mockPinger{}, "redis": &mockPinger{}}
}

func buildMatchesRouter(store api.MatchStore, sync api.ScheduleSyncer, cache api.Cache) http.Handler {
	if cache == nil {
		cache = &mockCache{}
	}
	log := discardLogger()
	h := api.NewMatchesHandlers(store, sync, cache, log)
	return api.NewMatchesRouter(h, testToken, api.NewMetrics(), healthyDeps(), log)
}

func buildWeatherRouter(sync api.WeatherSyncer, store api.WeatherStore, fetcher api.WeatherFetcher, cache api.Cache) http.Handler {
	if cache == nil {
		cache = &mockCache{}
	}
	log := discardLogger()
	h := api.NewWeatherHandlers(sync, store, fetcher, cache, log)
	return api.NewWeatherRouter(h, api.NewMetrics(), healthyDeps(), log)
}

func serve(router http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func bearer() http.Header {
	return http.Header{"Authorization": {"Bearer " + testToken}}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}
