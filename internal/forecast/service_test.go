package forecast_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/forecast"
	"github.com/neexbeast/match-weather/internal/syncer"
)

type stubFetcher struct {
	hourly forecast.Hourly
	failOn map[string]bool
	calls  int
}

func (s *stubFetcher) Forecast(_ context.Context, location string, day caldate.Date) (forecast.ForecastResponse, error) {
	s.calls++
	if s.failOn[location] {
		return forecast.ForecastResponse{}, apperr.Wrap(apperr.KindRemoteUnavailable, errors.New("down"), "GET")
	}
	return forecast.ForecastResponse{ForecastDate: day, HourlyWeather: s.hourly}, nil
}

func (s *stubFetcher) History(_ context.Context, location string, day caldate.Date) (forecast.HistoryResponse, error) {
	s.calls++
	return forecast.HistoryResponse{CityName: location, Date: day, HourlyWeather: s.hourly}, nil
}

type memWeather struct {
	mu   sync.Mutex
	rows map[forecast.Key]forecast.Hourly
}

func (m *memWeather) InsertOrReplace(_ context.Context, key forecast.Key, h forecast.Hourly) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.rows[key]
	m.rows[key] = h
	return !existed, nil
}

func newService(f *stubFetcher, store *memWeather) *forecast.Service {
	s := syncer.NewOverwriteOnExists[forecast.Key, forecast.Hourly]("weather", store, forecast.ValidateKey, quietLog())
	return forecast.NewService(f, s, quietLog())
}

func TestSyncForecast_OverwritesPayload(t *testing.T) {
	day := caldate.New(2024, time.January, 10)
	f := &stubFetcher{hourly: forecast.Hourly{"12:00": {TempC: 1}}}
	store := &memWeather{rows: map[forecast.Key]forecast.Hourly{}}
	svc := newService(f, store)
	key := forecast.NewKey(" Boston ", day, "A at B")

	_, outcome, err := svc.SyncForecast(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, syncer.Inserted, outcome)

	f.hourly = forecast.Hourly{"12:00": {TempC: 5}}
	resp, outcome, err := svc.SyncForecast(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, syncer.Updated, outcome)
	assert.Equal(t, 5.0, resp.HourlyWeather["12:00"].TempC)

	require.Len(t, store.rows, 1)
	assert.Equal(t, 5.0, store.rows[forecast.Key{Location: "boston", Date: day, MatchName: "A at B"}]["12:00"].TempC)
}

func TestSyncForecast_InvalidKeySkipsFetch(t *testing.T) {
	f := &stubFetcher{}
	svc := newService(f, &memWeather{rows: map[forecast.Key]forecast.Hourly{}})

	_, _, err := svc.SyncForecast(context.Background(), forecast.NewKey("", caldate.New(2024, 1, 1), ""))
	assert.ErrorIs(t, err, apperr.ErrRequiredFieldMissing)
	assert.Zero(t, f.calls)
}

func TestSyncHistory(t *testing.T) {
	day := caldate.New(2023, time.December, 1)
	store := &memWeather{rows: map[forecast.Key]forecast.Hourly{}}
	svc := newService(&stubFetcher{hourly: forecast.Hourly{"00:00": {Cloud: 10}}}, store)

	resp, outcome, err := svc.SyncHistory(context.Background(), forecast.NewKey("Tampa", day, ""))
	require.NoError(t, err)
	assert.Equal(t, syncer.Inserted, outcome)
	assert.Equal(t, "tampa", resp.CityName)
	assert.Len(t, store.rows, 1)
}

func TestSyncLocations_CountsFetchFailures(t *testing.T) {
	day := caldate.New(2024, time.January, 10)
	f := &stubFetcher{hourly: forecast.Hourly{}, failOn: map[string]bool{"denver": true}}
	store := &memWeather{rows: map[forecast.Key]forecast.Hourly{}}
	svc := newService(f, store)

	sum, err := svc.SyncLocations(context.Background(), []string{"Boston", "Denver", " ", "Tampa"}, day)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.Equal(t, syncer.Summary{Inserted: 2, Failed: 1}, sum)
	assert.Len(t, store.rows, 2)
}

func TestNewKey_LocationCaseInsensitive(t *testing.T) {
	day := caldate.New(2024, time.January, 10)
	assert.Equal(t, forecast.NewKey("Boston", day, "A at B"), forecast.NewKey(" boston ", day, "A at B"))
	assert.Equal(t, "A at B", forecast.NewKey("BOSTON", day, " A at B ").MatchName)
}

func TestSyncForecast_LocationCaseSharesRecord(t *testing.T) {
	day := caldate.New(2024, time.January, 10)
	store := &memWeather{rows: map[forecast.Key]forecast.Hourly{}}
	svc := newService(&stubFetcher{hourly: forecast.Hourly{}}, store)

	_, first, err := svc.SyncForecast(context.Background(), forecast.NewKey("Boston", day, ""))
	require.NoError(t, err)
	_, second, err := svc.SyncForecast(context.Background(), forecast.NewKey("boston", day, ""))
	require.NoError(t, err)

	assert.Equal(t, syncer.Inserted, first)
	assert.Equal(t, syncer.Updated, second)
	assert.Len(t, store.rows, 1)
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, forecast.ValidateKey(forecast.NewKey("Boston", caldate.New(2024, 1, 1), "")))
	assert.ErrorIs(t, forecast.ValidateKey(forecast.Key{Location: "Boston"}), apperr.ErrRequiredFieldMissing)
	assert.Equal(t, "boston@2024-01-01[A at B]", forecast.NewKey("Boston", caldate.New(2024, 1, 1), "A at B").String())
}
