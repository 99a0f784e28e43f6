package api

import (
	"context"

	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/forecast"
	"github.com/neexbeast/match-weather/internal/schedule"
	"github.com/neexbeast/match-weather/internal/syncer"
)

// MatchStore defines the match queries needed by handlers.
type MatchStore interface {
	MatchByUID(ctx context.Context, uid string) (*schedule.Match, error)
	MatchesBetween(ctx context.Context, from, to caldate.Date) ([]schedule.Match, error)
	LatestMatches(ctx context.Context, day caldate.Date, limit int) ([]schedule.Match, error)
}

// ScheduleSyncer pulls one day of the schedule into the store.
type ScheduleSyncer interface {
	SyncDay(ctx context.Context, day caldate.Date) (schedule.DayReport, error)
}

// WeatherStore defines the weather queries needed by handlers.
type WeatherStore interface {
	WeatherByKey(ctx context.Context, key forecast.Key) (*forecast.Record, error)
}

// WeatherSyncer fetches weather and overwrites the stored payload.
type WeatherSyncer interface {
	SyncForecast(ctx context.Context, key forecast.Key) (forecast.ForecastResponse, syncer.Outcome, error)
	SyncHistory(ctx context.Context, key forecast.Key) (forecast.HistoryResponse, syncer.Outcome, error)
}

// WeatherFetcher covers the lookups that are cached but never stored.
type WeatherFetcher interface {
	Current(ctx context.Context, city string) (forecast.CurrentWeather, error)
	Astro(ctx context.Context, city string, day caldate.Date) (forecast.Astro, error)
}

// Cache defines the cache operations needed by handlers.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	DeleteNamespace(ctx context.Context, namespace string) error
}
