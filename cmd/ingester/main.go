package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"climate-platform/internal/config"
	"climate-platform/internal/repository"
	"climate-platform/internal/services"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

func main() {
	// Parse command-line flags
	stationsFile := flag.String("stations", "", "CSV file with station,name,latitude,longitude,elevation")
	measurementsFile := flag.String("measurements", "", "CSV file with station,date,prcp,tobs")
	batchSize := flag.Int("batch-size", 1000, "Number of records inserted per transaction")
	flag.Parse()

	if *stationsFile == "" && *measurementsFile == "" {
		fmt.Fprintln(os.Stderr, "at least one of -stations or -measurements is required")
		flag.Usage()
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

	logger := cfg.NewLogger("climate-ingester", "1.0.0")

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting climate dataset ingestion", logging.Fields{
		"version":           "1.0.0",
		"stations_file":     *stationsFile,
		"measurements_file": *measurementsFile,
		"batch_size":        *batchSize,
		"db_driver":         cfg.Database.Driver,
	})

	metricsCollector := metrics.NewCollector("climate_ingester", prometheus.NewRegistry())

	db, err := database.Open(cfg.DatabaseSettings(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	climateRepo := repository.NewClimateRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(climateRepo, logger, metricsCollector)

	result, err := ingestionService.IngestFiles(ctx, *stationsFile, *measurementsFile, *batchSize)
	if err != nil {
		db.Close()
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Stations:      %d loaded, %d rejected\n", result.Stations.SuccessfulRecords, result.Stations.FailedRecords)
	fmt.Printf("Measurements:  %d loaded, %d rejected\n", result.Measurements.SuccessfulRecords, result.Measurements.FailedRecords)
	fmt.Printf("Duration:      %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nRejected rows (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i == 10 {
				fmt.Printf("  ... and %d more\n", len(result.Errors)-10)
				break
			}
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"stations_loaded":     result.Stations.SuccessfulRecords,
		"measurements_loaded": result.Measurements.SuccessfulRecords,
		"duration_seconds":    result.Duration.Seconds(),
	})
}
