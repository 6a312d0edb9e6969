package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"climate-platform/internal/analytics"
	"climate-platform/internal/config"
	"climate-platform/internal/repository"
	"climate-platform/internal/services"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

func main() {
	start := flag.String("start", "", "Start date for the temperature summary (default: trailing window start)")
	end := flag.String("end", "", "End date for the temperature summary (default: open-ended)")
	top := flag.Int("top", 10, "Number of stations shown in the activity ranking")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Console output goes to stdout; keep the log stream to warnings
	logger := cfg.NewLogger("climate-report", "1.0.0")
	logger.SetLevel(logging.WarnLevel)
	ctx := context.Background()

	metricsCollector := metrics.NewCollector("climate_report", prometheus.NewRegistry())

	db, err := database.Open(cfg.ReadOnlyDatabaseSettings(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[REPORT_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	climateRepo := repository.NewClimateRepository(db, logger, metricsCollector)
	resolver, err := cfg.NewWindowResolver(climateRepo)
	if err != nil {
		db.Close()
		logger.Fatal(ctx, "[REPORT_ERROR] Invalid window configuration", logging.Fields{}, err)
	}
	queries := services.NewQueryService(climateRepo, resolver, logger, metricsCollector)

	if err := run(ctx, queries, resolver.Mode(), *start, *end, *top); err != nil {
		db.Close()
		fmt.Fprintf(os.Stderr, "report failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, queries *services.QueryService, anchor analytics.AnchorMode, start, end string, top int) error {
	banner("HAWAII CLIMATE REPORT")

	stations, err := queries.GetStations(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Stations: %d\n\n", len(stations))
	for _, s := range stations {
		fmt.Printf("  %-12s %-42s %8.4f %10.4f %6.1f m\n", s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation)
	}
	fmt.Println()

	banner("STATION ACTIVITY")
	activity, err := queries.StationActivity(ctx)
	if err != nil {
		return err
	}
	// Stable sort keeps dataset order among equal counts
	sort.SliceStable(activity, func(i, j int) bool { return activity[i].Count > activity[j].Count })
	for i, a := range activity {
		if i == top {
			fmt.Printf("  ... %d more\n", len(activity)-top)
			break
		}
		fmt.Printf("  %2d. %-12s %6d rows\n", i+1, a.Station, a.Count)
	}
	fmt.Println()

	banner("TRAILING-YEAR PRECIPITATION")
	precipitation, err := queries.GetPrecipitation(ctx)
	if err != nil {
		return err
	}
	var total float64
	var withData int
	for _, v := range precipitation {
		if v != nil {
			total += *v
			withData++
		}
	}
	fmt.Printf("Dates:               %d\n", len(precipitation))
	fmt.Printf("Dates with readings: %d\n", withData)
	fmt.Printf("Sum of readings:     %.2f\n\n", total)

	banner("MOST ACTIVE STATION")
	series, err := queries.GetMostActiveTemperatureSeries(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Station: %s\n", series.Station)
	fmt.Printf("Window:  %s .. %s (anchor: %s)\n", series.Start, series.End, anchor)
	fmt.Printf("Dates:   %d\n\n", len(series.Temperatures))

	if start == "" {
		start = series.Start
	}
	var endp *string
	if end != "" {
		endp = &end
	}

	banner("TEMPERATURE SUMMARY")
	stats, err := queries.GetTemperatureStats(ctx, start, endp)
	if err != nil {
		return err
	}
	rangeLabel := start + " onward"
	if endp != nil {
		rangeLabel = start + " .. " + end
	}
	fmt.Printf("Range: %s (%d readings)\n", rangeLabel, stats.Count)
	fmt.Printf("TMIN:  %.1f\n", stats.Min)
	fmt.Printf("TAVG:  %.2f\n", stats.RoundedAvg())
	fmt.Printf("TMAX:  %.1f\n", stats.Max)
	fmt.Println()

	return nil
}

func banner(title string) {
	fmt.Println(strings.Repeat("═", 64))
	fmt.Println(title)
	fmt.Println(strings.Repeat("═", 64))
}
