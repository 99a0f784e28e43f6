package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neexbeast/match-weather/internal/api"
	"github.com/neexbeast/match-weather/internal/cache"
	"github.com/neexbeast/match-weather/internal/caldate"
	"github.com/neexbeast/match-weather/internal/config"
	"github.com/neexbeast/match-weather/internal/forecast"
	"github.com/neexbeast/match-weather/internal/scheduler"
	"github.com/neexbeast/match-weather/internal/server"
	"github.com/neexbeast/match-weather/internal/storage"
	"github.com/neexbeast/match-weather/internal/syncer"
	"github.com/neexbeast/match-weather/internal/upstream"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("weather service exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.LoadWeather()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	applied, err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "files", applied)

	cacheLayer, err := cache.Open(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = cacheLayer.Close() }()

	weatherAPI := upstream.New(upstream.Config{
		Name:       "weatherapi",
		BaseURL:    forecast.DefaultBaseURL,
		Host:       forecast.DefaultHost,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		OpenFor:    time.Minute,
	}, log)
	client := forecast.NewClient(weatherAPI, log)

	repo := storage.NewWeatherRepository(pool)
	weatherSync := syncer.NewOverwriteOnExists[forecast.Key, forecast.Hourly]("weather", repo, forecast.ValidateKey, log)
	service := forecast.NewService(client, weatherSync, log)

	sched := scheduler.New(log)
	if len(cfg.Locations) > 0 {
		err := sched.Add("forecast-sync", cfg.SyncCron, func(ctx context.Context) error {
			_, err := service.SyncLocations(ctx, cfg.Locations, caldate.Today(time.UTC))
			return err
		})
		if err != nil {
			return err
		}
	}
	sched.Start(ctx)
	defer sched.Stop()

	handlers := api.NewWeatherHandlers(service, repo, client, cacheLayer, log)
	deps := map[string]api.Pinger{"db": pool, "redis": cacheLayer}
	router := api.NewWeatherRouter(handlers, api.NewMetrics(), deps, log)

	return server.Serve(ctx, server.New(":"+cfg.Port, router), log)
}
