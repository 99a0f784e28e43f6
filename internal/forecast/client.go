// Package forecast fetches forecasts, history, current conditions and
// astronomy data from weatherapi.com and syncs daily hourly weather into the
// weather store.
package forecast

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/neexbeast/match-weather/internal/apperr"
	"github.com/neexbeast/match-weather/internal/caldate"
)

const (
	DefaultBaseURL = "https://weatherapi-com.p.rapidapi.com"
	DefaultHost    = "weatherapi-com.p.rapidapi.com"
)

// jsonGetter is satisfied by *upstream.Client.
type jsonGetter interface {
	GetJSON(ctx context.Context, path string, query url.Values, dst any) error
}

// Client wraps the weatherapi endpoints.
type Client struct {
	api jsonGetter
	log *slog.Logger
}

// NewClient wraps an upstream client pointed at weatherapi.com.
func NewClient(api jsonGetter, log *slog.Logger) *Client {
	return &Client{api: api, log: log}
}

// Forecast returns the hourly forecast for location on day.
func (c *Client) Forecast(ctx context.Context, location string, day caldate.Date) (ForecastResponse, error) {
	var p providerPayload
	if err := c.api.GetJSON(ctx, "/forecast.json", dayQuery(location, day), &p); err != nil {
		return ForecastResponse{}, err
	}

	hourly, err := normalizeDay(p, day)
	if err != nil {
		return ForecastResponse{}, malformed(err, "forecast for %s on %s", location, day)
	}

	return ForecastResponse{ForecastDate: day, HourlyWeather: hourly}, nil
}

// History returns the recorded hourly weather for location on day.
func (c *Client) History(ctx context.Context, location string, day caldate.Date) (HistoryResponse, error) {
	var p providerPayload
	if err := c.api.GetJSON(ctx, "/history.json", dayQuery(location, day), &p); err != nil {
		return HistoryResponse{}, err
	}

	hourly, err := normalizeDay(p, day)
	if err != nil {
		return HistoryResponse{}, malformed(err, "history for %s on %s", location, day)
	}

	city := p.Location.Or(providerLocation{Name: location}).Name
	return HistoryResponse{CityName: city, Date: day, HourlyWeather: hourly}, nil
}

// Current returns the latest observation for city.
func (c *Client) Current(ctx context.Context, city string) (CurrentWeather, error) {
	query := url.Values{}
	query.Set("q", strings.TrimSpace(city))

	var p providerPayload
	if err := c.api.GetJSON(ctx, "/current.json", query, &p); err != nil {
		return CurrentWeather{}, err
	}

	cur, err := normalizeCurrent(p)
	if err != nil {
		return CurrentWeather{}, malformed(err, "current weather for %s", city)
	}
	return cur, nil
}

// Astro returns sun and moon times for city on day.
func (c *Client) Astro(ctx context.Context, city string, day caldate.Date) (Astro, error) {
	var p astroPayload
	if err := c.api.GetJSON(ctx, "/astronomy.json", dayQuery(city, day), &p); err != nil {
		return Astro{}, err
	}

	a, err := normalizeAstro(p, day)
	if err != nil {
		return Astro{}, malformed(err, "astronomy for %s on %s", city, day)
	}
	if a.CityName == "" {
		a.CityName = city
	}
	return a, nil
}

func dayQuery(location string, day caldate.Date) url.Values {
	query := url.Values{}
	query.Set("q", strings.TrimSpace(location))
	query.Set("dt", day.String())
	return query
}

// malformed reclassifies a normalisation failure of a whole upstream
// response: the provider, not the caller, sent incomplete data.
func malformed(err error, format string, args ...any) error {
	return apperr.Wrap(apperr.KindMalformedResponse, err, format, args...)
}
