package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/forecast"
)

// WeatherRepository stores hourly weather keyed by location, date and
// optional match name. Rows carry a surrogate UUID.
type WeatherRepository struct {
	q     Querier
	newID func() uuid.UUID
}

// NewWeatherRepository constructs a WeatherRepository backed by the given pool.
func NewWeatherRepository(pool *pgxpool.Pool) *WeatherRepository {
	return &WeatherRepository{q: pool, newID: uuid.New}
}

// NewWeatherRepositoryWithQuerier constructs a WeatherRepository with a custom Querier (for tests).
func NewWeatherRepositoryWithQuerier(q Querier) *WeatherRepository {
	return &WeatherRepository{q: q, newID: uuid.New}
}

// InsertOrReplace writes h under key, replacing the hourly payload of an
// existing row. inserted is false when a row was replaced.
func (r *WeatherRepository) InsertOrReplace(ctx context.Context, key forecast.Key, h forecast.Hourly) (bool, error) {
	hourlyJSON, err := json.Marshal(h)
	if err != nil {
		return false, fmt.Errorf("marshaling hourly weather for %s: %w", key, err)
	}

	// xmax is 0 only for a row version created by a plain insert.
	const q = `
		INSERT INTO weather (id, location, forecast_date, match_name, hourly, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (location, forecast_date, match_name) DO UPDATE
		SET hourly     = EXCLUDED.hourly,
		    updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	err = r.q.QueryRow(ctx, q, r.newID(), key.Location, key.Date.Time(), key.MatchName, hourlyJSON).Scan(&inserted)
	if err != nil {
		return false, storeErr(err, "upserting weather for %s", key)
	}

	return inserted, nil
}

// WeatherByKey returns the stored record for key. Returns nil, nil when not found.
func (r *WeatherRepository) WeatherByKey(ctx context.Context, key forecast.Key) (*forecast.Record, error) {
	const q = `
		SELECT location, forecast_date, match_name, hourly
		FROM weather
		WHERE location = $1 AND forecast_date = $2 AND match_name = $3
	`

	var (
		rec        forecast.Record
		date       time.Time
		hourlyJSON []byte
	)
	err := r.q.QueryRow(ctx, q, key.Location, key.Date.Time(), key.MatchName).
		Scan(&rec.Key.Location, &date, &rec.Key.MatchName, &hourlyJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr(err, "querying weather for %s", key)
	}

	if err := json.Unmarshal(hourlyJSON, &rec.Hourly); err != nil {
		return nil, fmt.Errorf("unmarshaling hourly weather for %s: %w", key, err)
	}
	rec.Key.Date = caldate.FromTime(date)

	return &rec, nil
}
