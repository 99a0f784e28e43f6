// Package config loads service configuration from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Common is shared by the matches and weather services.
type Common struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	MigrationsDir string
	CacheTTL      time.Duration
}

// Upstream configures the outbound RapidAPI client.
type Upstream struct {
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// Matches configures cmd/matches.
type Matches struct {
	Common
	Upstream
	BearerToken string
	SyncCron    string
}

// Weather configures cmd/weather.
type Weather struct {
	Common
	Upstream
	SyncCron  string
	Locations []string
}

// Gateway configures cmd/gateway.
type Gateway struct {
	Port        string
	MatchesURLs []string
	WeatherURLs []string
	Timeout     time.Duration
}

// LoadMatches reads the matches service configuration.
func LoadMatches() (Matches, error) {
	l := newLoader()
	cfg := Matches{
		Common:      l.common("5000"),
		Upstream:    l.upstream(),
		BearerToken: l.mustEnv("BEARER_TOKEN"),
		SyncCron:    getEnv("SYNC_CRON", "@every 6h"),
	}
	return cfg, l.err()
}

// LoadWeather reads the weather service configuration.
func LoadWeather() (Weather, error) {
	l := newLoader()
	cfg := Weather{
		Common:    l.common("5001"),
		Upstream:  l.upstream(),
		SyncCron:  getEnv("SYNC_CRON", "@every 3h"),
		Locations: getList("WEATHER_LOCATIONS"),
	}
	return cfg, l.err()
}

// LoadGateway reads the gateway configuration.
func LoadGateway() (Gateway, error) {
	l := newLoader()
	cfg := Gateway{
		Port:        getEnv("PORT", "8080"),
		MatchesURLs: l.mustList("MATCHES_URLS"),
		WeatherURLs: l.mustList("WEATHER_URLS"),
		Timeout:     l.duration("UPSTREAM_TIMEOUT", 20*time.Second),
	}
	return cfg, l.err()
}

// loader collects every problem so a misconfigured service reports them all
// at once.
type loader struct {
	errs []error
}

func newLoader() *loader {
	_ = godotenv.Load()
	return &loader{}
}

func (l *loader) err() error {
	return errors.Join(l.errs...)
}

func (l *loader) common(defaultPort string) Common {
	return Common{
		Port:          getEnv("PORT", defaultPort),
		DatabaseURL:   l.mustEnv("DATABASE_URL"),
		RedisURL:      l.mustEnv("REDIS_URL"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),
		CacheTTL:      l.duration("CACHE_TTL", time.Hour),
	}
}

func (l *loader) upstream() Upstream {
	return Upstream{
		APIKey:     l.mustEnv("RAPIDAPI_KEY"),
		Timeout:    l.duration("UPSTREAM_TIMEOUT", 10*time.Second),
		MaxRetries: l.integer("UPSTREAM_MAX_RETRIES", 2),
	}
}

func (l *loader) mustEnv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		l.errs = append(l.errs, fmt.Errorf("required environment variable %s not set", key))
	}
	return v
}

func (l *loader) mustList(key string) []string {
	v := getList(key)
	if len(v) == 0 {
		l.errs = append(l.errs, fmt.Errorf("required environment variable %s not set", key))
	}
	return v
}

func (l *loader) duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}
	return d
}

func (l *loader) integer(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		l.errs = append(l.errs, fmt.Errorf("%s: invalid non-negative integer %q", key, raw))
		return fallback
	}
	return n
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getList splits a comma-separated variable, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
