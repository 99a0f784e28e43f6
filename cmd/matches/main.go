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
	"github.com/neexbeast/match-weather/internal/schedule"
	"github.com/neexbeast/match-weather/internal/scheduler"
	"github.com/neexbeast/match-weather/internal/server"
	"github.com/neexbeast/match-weather/internal/storage"
	"github.com/neexbeast/match-weather/internal/syncer"
	"github.com/neexbeast/match-weather/internal/upstream"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("matches service exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.LoadMatches()
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

	nhl := upstream.New(upstream.Config{
		Name:       "nhl-schedule",
		BaseURL:    schedule.DefaultBaseURL,
		Host:       schedule.DefaultHost,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		OpenFor:    time.Minute,
	}, log)

	repo := storage.NewMatchRepository(pool)
	matchSync := syncer.NewSkipOnExists[string, schedule.Match]("matches", repo, schedule.ValidateUID, log)
	scheduleSync := schedule.NewSyncer(schedule.NewClient(nhl, log), matchSync, log)

	sched := scheduler.New(log)
	err = sched.Add("schedule-sync", cfg.SyncCron, func(ctx context.Context) error {
		reports, err := scheduleSync.SyncWindow(ctx, caldate.Today(time.UTC), api.UpcomingDays)
		for _, r := range reports {
			if r.Inserted > 0 {
				if cerr := cacheLayer.DeleteNamespace(ctx, api.UpcomingNamespace); cerr != nil {
					log.Warn("cache invalidation failed", "namespace", api.UpcomingNamespace, "err", cerr)
				}
				break
			}
		}
		return err
	})
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()

	handlers := api.NewMatchesHandlers(repo, scheduleSync, cacheLayer, log)
	deps := map[string]api.Pinger{"db": pool, "redis": cacheLayer}
	router := api.NewMatchesRouter(handlers, cfg.BearerToken, api.NewMetrics(), deps, log)

	return server.Serve(ctx, server.New(":"+cfg.Port, router), log)
}
