package forecast

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/syncer"
)

// fetcher is the subset of *Client the service uses.
type fetcher interface {
	Forecast(ctx context.Context, location string, day caldate.Date) (ForecastResponse, error)
	History(ctx context.Context, location string, day caldate.Date) (HistoryResponse, error)
}

// upserter is satisfied by *syncer.Synchronizer[Key, Hourly].
type upserter interface {
	Upsert(ctx context.Context, key Key, h Hourly) (syncer.Outcome, error)
	UpsertAll(ctx context.Context, items []syncer.Item[Key, Hourly]) (syncer.Summary, error)
}

// Service runs fetch, normalise and overwrite-upsert for weather records.
type Service struct {
	client fetcher
	sync   upserter
	log    *slog.Logger
}

// NewService wires a fetcher to a weather synchronizer.
func NewService(client fetcher, sync upserter, log *slog.Logger) *Service {
	return &Service{client: client, sync: sync, log: log}
}

// SyncForecast fetches the forecast for key and stores it, replacing any
// earlier payload under the same key.
func (s *Service) SyncForecast(ctx context.Context, key Key) (ForecastResponse, syncer.Outcome, error) {
	if err := ValidateKey(key); err != nil {
		return ForecastResponse{}, 0, err
	}

	resp, err := s.client.Forecast(ctx, key.Location, key.Date)
	if err != nil {
		return ForecastResponse{}, 0, err
	}

	outcome, err := s.sync.Upsert(ctx, key, resp.HourlyWeather)
	if err != nil {
		return ForecastResponse{}, 0, err
	}

	s.log.Info("forecast synced", "key", key.String(), "outcome", outcome.String(), "hours", len(resp.HourlyWeather))
	return resp, outcome, nil
}

// SyncHistory fetches recorded weather for key and stores it.
func (s *Service) SyncHistory(ctx context.Context, key Key) (HistoryResponse, syncer.Outcome, error) {
	if err := ValidateKey(key); err != nil {
		return HistoryResponse{}, 0, err
	}

	resp, err := s.client.History(ctx, key.Location, key.Date)
	if err != nil {
		return HistoryResponse{}, 0, err
	}

	outcome, err := s.sync.Upsert(ctx, key, resp.HourlyWeather)
	if err != nil {
		return HistoryResponse{}, 0, err
	}

	s.log.Info("history synced", "key", key.String(), "outcome", outcome.String())
	return resp, outcome, nil
}

// SyncLocations refreshes the forecast for each location on day. Fetch
// failures are counted as failed records; the joined fetch errors and the
// first store error are returned together.
func (s *Service) SyncLocations(ctx context.Context, locations []string, day caldate.Date) (syncer.Summary, error) {
	var (
		items     []syncer.Item[Key, Hourly]
		fetchErrs []error
	)

	for _, loc := range locations {
		key := NewKey(loc, day, "")
		if key.Location == "" {
			continue
		}
		resp, err := s.client.Forecast(ctx, key.Location, day)
		if err != nil {
			s.log.Error("forecast fetch failed", "location", key.Location, "err", err)
			fetchErrs = append(fetchErrs, err)
			continue
		}
		items = append(items, syncer.Item[Key, Hourly]{Key: key, Record: resp.HourlyWeather})
	}

	sum, err := s.sync.UpsertAll(ctx, items)
	sum.Failed += len(fetchErrs)

	s.log.Info("weather sync finished", "date", day.String(),
		"inserted", sum.Inserted, "updated", sum.Updated, "failed", sum.Failed)

	return sum, errors.Join(append(fetchErrs, err)...)
}
