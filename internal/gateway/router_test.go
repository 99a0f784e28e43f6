package gateway_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/match-weather/internal/api"
	"github.com/neexbeast/match-weather/internal/gateway"
)

const matchesJSON = `[
	{"uid":"s:70~l:90~e:1","date":"2024-01-10","name":"Bruins at Panthers","venue_full_name":"Amerant Bank Arena","city":"Sunrise","state":"FL","country":"USA"},
	{"uid":"s:70~l:90~e:2","date":"2024-01-10","name":"Rangers at Devils","venue_full_name":"Prudential Center","city":"Newark","state":"NJ","country":"USA"},
	{"uid":"s:70~l:90~e:3","date":"2024-01-11","name":"Kings at Panthers","venue_full_name":"Amerant Bank Arena","city":"Sunrise","state":"FL","country":"USA"},
	{"uid":"s:70~l:90~e:4","date":"2024-01-11","name":"TBD","venue_full_name":"","city":"","state":"","country":""}
]`

const hourlyJSON = `{"18:00":{"chance_of_rain":10,"cloud":20,"condition":"Clear","temp_c":24.5,"wind_mph":5.1}}`

type fakeServices struct {
	matches        *httptest.Server
	weather        *httptest.Server
	weatherCalls   atomic.Int32
	failWeather    bool
	lastTargetDate atomic.Value
}

func newFakeServices(t *testing.T) *fakeServices {
	t.Helper()
	fs := &fakeServices{}

	fs.matches = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/status":
			_, _ = io.WriteString(w, "OK")
		case "/upcoming_matches", "/today_matches":
			_, _ = io.WriteString(w, matchesJSON)
		case "/past_matches":
			fs.lastTargetDate.Store(r.URL.Query().Get("target_date"))
			_, _ = io.WriteString(w, matchesJSON)
		case "/team_info":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"no match","code":"not_found"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fs.matches.Close)

	fs.weather = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.weatherCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if fs.failWeather {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":"Bad Gateway","code":"remote_unavailable"}`)
			return
		}
		q := r.URL.Query()
		switch r.URL.Path {
		case "/status":
			_, _ = io.WriteString(w, "OK")
		case "/weather_forecast":
			_, _ = io.WriteString(w, `{"forecast_date":"`+q.Get("date")+`","hourly_weather":`+hourlyJSON+`}`)
		case "/current_weather":
			_, _ = io.WriteString(w, `{"city_name":"`+q.Get("city")+`","cloud":0,"condition":"Sunny","date":"2024-01-10","hour":"12:00","temp_c":26,"wind_mph":3}`)
		case "/weather_history":
			_, _ = io.WriteString(w, `{"city_name":"`+q.Get("location")+`","date":"`+q.Get("date")+`","hourly_weather":`+hourlyJSON+`}`)
		case "/astro":
			_, _ = io.WriteString(w, `{"city_name":"`+q.Get("city")+`","sunrise":"07:05 AM"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fs.weather.Close)

	return fs
}

func (fs *fakeServices) router(t *testing.T) http.Handler {
	t.Helper()
	log := discardLogger()
	matches, err := gateway.NewBackend(gateway.BackendConfig{Name: "matches", Replicas: []string{fs.matches.URL}}, log)
	require.NoError(t, err)
	weather, err := gateway.NewBackend(gateway.BackendConfig{Name: "weather", Replicas: []string{fs.weather.URL}}, log)
	require.NoError(t, err)
	return gateway.NewRouter(matches, weather, api.NewMetrics(), log)
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- forwarding ----

func TestForward_Astro(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/weather/get_astro?city=Paris&date=2024-01-10")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"city_name":"Paris","sunrise":"07:05 AM"}`, w.Body.String())
}

func TestForward_MissingParamNeverReachesService(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/weather/forward_weather_forecast?location=Paris")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int32(0), fs.weatherCalls.Load())

	var body api.ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "missing_required_field", body.Code)
}

func TestForward_ServiceErrorStatusPreserved(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/matches/team_info?game_id=42")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"no match","code":"not_found"}`, w.Body.String())
}

func TestForward_ServiceDown(t *testing.T) {
	fs := newFakeServices(t)
	router := fs.router(t)
	fs.matches.Close()

	w := get(router, "/matches/upcoming_matches")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

// ---- composites ----

func TestFutureMatches_ForecastPerMatchWithCity(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/meteo_for_future_matches")

	require.Equal(t, http.StatusOK, w.Code)
	var got []gateway.MatchForecast
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))

	require.Len(t, got, 3, "match without a city is skipped")
	assert.Equal(t, "s:70~l:90~e:1", got[0].UID)
	assert.Equal(t, "Newark", got[1].City)
	assert.Equal(t, "2024-01-11", got[2].Forecast.ForecastDate.String())
	assert.Equal(t, 24.5, got[0].Forecast.HourlyWeather["18:00"].TempC)
	assert.Equal(t, int32(3), fs.weatherCalls.Load())
}

func TestTodayMatches_OneCallPerDistinctCity(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/meteo_for_today_matches")

	require.Equal(t, http.StatusOK, w.Code)
	var got gateway.TodayMeteo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))

	require.Len(t, got.Weather, 2)
	assert.Equal(t, "Sunrise", got.Weather[0].City)
	assert.Equal(t, "Newark", got.Weather[1].Weather.CityName)
	assert.Equal(t, int32(2), fs.weatherCalls.Load())
}

func TestPastMatches_HistoryPerMatch(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/past_matches_meteo?date=2024-01-12")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-01-12", fs.lastTargetDate.Load())

	var got gateway.PastMeteo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got.WeatherHistory, 3)
	assert.Equal(t, "Sunrise", got.WeatherHistory[0].CityName)
	assert.Equal(t, "2024-01-11", got.WeatherHistory[2].Date.String())
	assert.Contains(t, got.WeatherHistory[1].HourlyWeather, "18:00")
}

func TestPastMatches_MissingDate(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/past_matches_meteo")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestComposite_WeatherFailureFailsRequest(t *testing.T) {
	fs := newFakeServices(t)
	fs.failWeather = true
	w := get(fs.router(t), "/meteo_for_future_matches")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	var body api.ErrorBody
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "remote_unavailable", body.Code)
}

// ---- health ----

func TestHealth_PingsBothServices(t *testing.T) {
	fs := newFakeServices(t)
	w := get(fs.router(t), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["matches"])
	assert.Equal(t, "ok", body["weather"])
}
