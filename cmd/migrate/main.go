package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"climate-platform/internal/config"
	"climate-platform/migrations"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	dir, err := migrations.ParseDirection(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger("climate-migrate", "1.0.0")
	ctx := context.Background()

	scripts, err := migrations.Load(cfg.Database.Driver, dir)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to load migrations", logging.Fields{}, err)
	}

	// Nothing scrapes a one-shot run, so the metrics stay private
	metricsCollector := metrics.NewCollector("climate_migrate", prometheus.NewRegistry())

	db, err := database.Open(cfg.DatabaseSettings(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	for _, s := range scripts {
		logger.Info(ctx, "[MIGRATE_RUN] Running migration", logging.Fields{
			"script":    s.Name,
			"direction": string(dir),
		})

		if _, err := db.ExecContext(ctx, "migrate", s.SQL); err != nil {
			db.Close()
			logger.Fatal(ctx, "[MIGRATE_ERROR] Migration failed", logging.Fields{
				"script": s.Name,
			}, err)
		}
	}

	logger.Info(ctx, "[MIGRATE_COMPLETE] Migrations applied", logging.Fields{
		"driver":    cfg.Database.Driver,
		"direction": string(dir),
		"count":     len(scripts),
	})
}
