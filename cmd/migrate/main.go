// Command migrate creates the groundwater table and indexes if they do not
// exist yet. Run once against a fresh database before starting the server.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"groundwatch/internal/config"
	"groundwatch/internal/observability"
	"groundwatch/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st, err := store.New(ctx, cfg.DatabaseURL, cfg.TableName, cfg.WriteBatchSize, logger, observability.NewMetrics())
	if err != nil {
		logger.Error("db connection error", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migration complete", "table", cfg.TableName)
}
