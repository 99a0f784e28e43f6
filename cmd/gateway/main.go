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
	"github.com/neexbeast/match-weather/internal/config"
	"github.com/neexbeast/match-weather/internal/gateway"
	"github.com/neexbeast/match-weather/internal/server"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("gateway exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.LoadGateway()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	matches, err := gateway.NewBackend(gateway.BackendConfig{
		Name:     "matches",
		Replicas: cfg.MatchesURLs,
		Timeout:  cfg.Timeout,
		OpenFor:  30 * time.Second,
	}, log)
	if err != nil {
		return err
	}
	weather, err := gateway.NewBackend(gateway.BackendConfig{
		Name:     "weather",
		Replicas: cfg.WeatherURLs,
		Timeout:  cfg.Timeout,
		OpenFor:  30 * time.Second,
	}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := gateway.NewRouter(matches, weather, api.NewMetrics(), log)
	return server.Serve(ctx, server.New(":"+cfg.Port, router), log)
}
