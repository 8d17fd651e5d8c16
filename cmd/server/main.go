package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"groundwatch/internal/config"
	"groundwatch/internal/districts"
	"groundwatch/internal/httpapi"
	"groundwatch/internal/observability"
	"groundwatch/internal/pipeline"
	"groundwatch/internal/scheduler"
	"groundwatch/internal/store"
	"groundwatch/internal/wris"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refs, err := districts.Load(cfg.StateName, cfg.DistrictsFile, cfg.DistrictLimit)
	if err != nil {
		logger.Error("district source error", "error", err)
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	st, err := store.New(connectCtx, cfg.DatabaseURL, cfg.TableName, cfg.WriteBatchSize, logger, metrics)
	if err != nil {
		logger.Error("db connection error", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	client := wris.NewClient(wris.Options{
		BaseURL:    cfg.BaseURL,
		Agency:     cfg.AgencyName,
		Timeout:    cfg.FetchTimeout,
		MaxRetries: cfg.FetchMaxRetries,
		Backoff:    cfg.FetchBackoff,
	}, logger, metrics)

	p := pipeline.New(client, st, refs, cfg.Window, cfg.FetchDelay, clock, logger, metrics)
	sched := scheduler.New(p, cfg.RefreshInterval, cfg.CycleTimeout, clock, logger, metrics)
	srv := httpapi.New(cfg.ListenAddr(), cfg.BearerToken, st, sched, logger)

	logger.Info("groundwatch starting",
		"addr", cfg.ListenAddr(),
		"table", cfg.TableName,
		"districts", len(refs),
		"refresh_interval", cfg.RefreshInterval.String(),
	)

	go sched.Run(ctx)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
