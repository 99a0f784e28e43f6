package gateway_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/gateway"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBalancer_RequiresReplica(t *testing.T) {
	_, err := gateway.NewBalancer([]string{" ", ""})
	assert.Error(t, err)
}

func TestBalancer_RoundRobin(t *testing.T) {
	b, err := gateway.NewBalancer([]string{"http://a:5001/", "http://b:5001"})
	require.NoError(t, err)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, "http://a:5001", b.Next())
	assert.Equal(t, "http://b:5001", b.Next())
	assert.Equal(t, "http://a:5001", b.Next())
}

func TestBackend_SpreadsAcrossReplicas(t *testing.T) {
	var hitsA, hitsB atomic.Int32
	a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hitsA.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer a.Close()
	b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hitsB.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer b.Close()

	backend, err := gateway.NewBackend(gateway.BackendConfig{Name: "weather", Replicas: []string{a.URL, b.URL}}, discardLogger())
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := backend.Get(context.Background(), "astro", "/astro", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(2), hitsA.Load())
	assert.Equal(t, int32(2), hitsB.Load())
}

func TestBackend_PassesServiceAnswersThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/team_info", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("game_id"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"no match","code":"not_found"}`)
	}))
	defer srv.Close()

	backend, err := gateway.NewBackend(gateway.BackendConfig{Name: "matches", Replicas: []string{srv.URL}}, discardLogger())
	require.NoError(t, err)

	resp, err := backend.Get(context.Background(), "team_info", "/team_info", url.Values{"game_id": {"42"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/json", resp.ContentType)
	assert.JSONEq(t, `{"error":"no match","code":"not_found"}`, string(resp.Body))
}

func TestBackend_BreakerOpensPerCommand(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path == "/astro" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	backend, err := gateway.NewBackend(gateway.BackendConfig{
		Name:      "weather",
		Replicas:  []string{srv.URL},
		TripAfter: 2,
		OpenFor:   time.Minute,
	}, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		resp, err := backend.Get(ctx, "current_weather", "/current_weather", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.Status)
	}

	_, err = backend.Get(ctx, "current_weather", "/current_weather", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
	assert.Equal(t, int32(2), calls.Load(), "open breaker must not reach the service")

	resp, err := backend.Get(ctx, "astro", "/astro", nil)
	require.NoError(t, err, "other commands keep their own breaker")
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestBackend_CallerDeadlinesDoNotOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") != "" {
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	backend, err := gateway.NewBackend(gateway.BackendConfig{
		Name:      "weather",
		Replicas:  []string{srv.URL},
		TripAfter: 2,
		OpenFor:   time.Minute,
	}, discardLogger())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := backend.Get(ctx, "current_weather", "/current_weather", url.Values{"slow": {"1"}})
		cancel()
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "circuit open")
	}

	resp, err := backend.Get(context.Background(), "current_weather", "/current_weather", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestNewBackend_NilLoggerDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	backend, err := gateway.NewBackend(gateway.BackendConfig{
		Name:      "matches",
		Replicas:  []string{srv.URL},
		TripAfter: 1,
		OpenFor:   time.Minute,
	}, nil)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		_, _ = backend.Get(context.Background(), "today_matches", "/today_matches", nil)
	})
	_, err = backend.Get(context.Background(), "today_matches", "/today_matches", nil)
	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
}

func TestBackend_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	backend, err := gateway.NewBackend(gateway.BackendConfig{Name: "matches", Replicas: []string{srv.URL}}, discardLogger())
	require.NoError(t, err)

	_, err = backend.Get(context.Background(), "today_matches", "/today_matches", nil)
	assert.Equal(t, apperr.KindRemoteUnavailable, apperr.KindOf(err))
	assert.Error(t, backend.Ping(context.Background()))
}
