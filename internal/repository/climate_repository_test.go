package repository

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"climate-platform/internal/models"
	"climate-platform/migrations"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

func setupTestRepo(t *testing.T) (ClimateRepository, *database.DB) {
	t.Helper()

	logger := logging.New(io.Discard, logging.FormatJSON, "repo-test", "test", logging.ErrorLevel)
	collector := metrics.NewCollector("repo_test", prometheus.NewRegistry())

	// A single pooled connection keeps the in-memory database alive
	db, err := database.Open(&database.Config{
		Driver:       database.DriverSQLite,
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger, collector)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})

	scripts, err := migrations.Load(database.DriverSQLite, migrations.Up)
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	for _, s := range scripts {
		if _, err := db.ExecContext(context.Background(), "migrate", s.SQL); err != nil {
			t.Fatalf("exec %s: %v", s.Name, err)
		}
	}

	return NewClimateRepository(db, logger, collector), db
}

func f(v float64) *float64 {
	return &v
}

func s(v string) *string {
	return &v
}

func seedMeasurements(t *testing.T, repo ClimateRepository, ms ...*models.Measurement) {
	t.Helper()
	if err := repo.CreateMeasurementsBatch(context.Background(), ms); err != nil {
		t.Fatalf("CreateMeasurementsBatch: %v", err)
	}
}

func TestAllStations_Empty(t *testing.T) {
	repo, _ := setupTestRepo(t)

	stations, err := repo.AllStations(context.Background())
	if err != nil {
		t.Fatalf("AllStations: %v", err)
	}
	if len(stations) != 0 {
		t.Fatalf("AllStations: got %d stations, want 0", len(stations))
	}
}

func TestCreateStationsBatch_InsertionOrderAndDedup(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	err := repo.CreateStationsBatch(ctx, []*models.Station{
		{Station: "USC00519397", Name: "WAIKIKI 717.2, HI US", Latitude: 21.2716, Longitude: -157.8168, Elevation: 3},
		{Station: "USC00513117", Name: "KANEOHE 838.1, HI US", Latitude: 21.4234, Longitude: -157.8015, Elevation: 14.6},
	})
	if err != nil {
		t.Fatalf("CreateStationsBatch: %v", err)
	}

	// Re-loading an existing station is a no-op
	err = repo.CreateStationsBatch(ctx, []*models.Station{
		{Station: "USC00519397", Name: "renamed"},
		{Station: "USC00514830", Name: "KUALOA RANCH HEADQUARTERS 886.9, HI US", Latitude: 21.5213, Longitude: -157.8374, Elevation: 7},
	})
	if err != nil {
		t.Fatalf("CreateStationsBatch (second): %v", err)
	}

	stations, err := repo.AllStations(ctx)
	if err != nil {
		t.Fatalf("AllStations: %v", err)
	}

	wantOrder := []string{"USC00519397", "USC00513117", "USC00514830"}
	if len(stations) != len(wantOrder) {
		t.Fatalf("AllStations: got %d stations, want %d", len(stations), len(wantOrder))
	}
	for i, want := range wantOrder {
		if stations[i].Station != want {
			t.Errorf("stations[%d] = %s, want %s", i, stations[i].Station, want)
		}
	}
	if stations[0].Name != "WAIKIKI 717.2, HI US" {
		t.Errorf("existing station was overwritten: %q", stations[0].Name)
	}
	if stations[1].Elevation != 14.6 || stations[1].Latitude != 21.4234 {
		t.Errorf("station metadata = %+v", stations[1])
	}
}

func TestMaxDate(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.MaxDate(ctx)
	var emptyErr *models.EmptyDatasetError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("MaxDate on empty table: error = %v, want *EmptyDatasetError", err)
	}

	seedMeasurements(t, repo,
		&models.Measurement{Station: "S1", Date: "2017-08-23", Temperature: f(81)},
		&models.Measurement{Station: "S1", Date: "2010-01-01", Temperature: f(65)},
		&models.Measurement{Station: "S2", Date: "2016-12-31", Temperature: f(70)},
	)

	got, err := repo.MaxDate(ctx)
	if err != nil {
		t.Fatalf("MaxDate: %v", err)
	}
	if got != "2017-08-23" {
		t.Errorf("MaxDate = %s, want 2017-08-23", got)
	}
}

func TestAllMeasurements_PreservesNullsAndDuplicates(t *testing.T) {
	repo, _ := setupTestRepo(t)

	seedMeasurements(t, repo,
		&models.Measurement{Station: "S1", Date: "2017-08-20", Precipitation: f(0.5), Temperature: f(78)},
		&models.Measurement{Station: "S1", Date: "2017-08-20", Precipitation: nil, Temperature: f(79)},
		&models.Measurement{Station: "ORPHAN", Date: "2017-08-21", Precipitation: f(0), Temperature: f(80)},
	)

	ms, err := repo.AllMeasurements(context.Background())
	if err != nil {
		t.Fatalf("AllMeasurements: %v", err)
	}
	if len(ms) != 3 {
		t.Fatalf("got %d rows, want 3", len(ms))
	}

	if ms[0].Precipitation == nil || *ms[0].Precipitation != 0.5 {
		t.Errorf("row 0 prcp = %v, want 0.5", ms[0].Precipitation)
	}
	if ms[1].Precipitation != nil {
		t.Errorf("row 1 prcp = %v, want nil", *ms[1].Precipitation)
	}
	if ms[2].Precipitation == nil || *ms[2].Precipitation != 0 {
		t.Errorf("row 2 prcp = %v, want explicit 0", ms[2].Precipitation)
	}
	if ms[2].Station != "ORPHAN" {
		t.Errorf("row 2 station = %s", ms[2].Station)
	}
	for i := 1; i < len(ms); i++ {
		if ms[i].ID <= ms[i-1].ID {
			t.Errorf("rows not in insertion order: ids %d then %d", ms[i-1].ID, ms[i].ID)
		}
	}
}

func TestMeasurementsWhere(t *testing.T) {
	repo, _ := setupTestRepo(t)

	seedMeasurements(t, repo,
		&models.Measurement{Station: "S1", Date: "2016-12-31", Temperature: f(60)},
		&models.Measurement{Station: "S1", Date: "2017-01-01", Temperature: f(61)},
		&models.Measurement{Station: "S2", Date: "2017-01-15", Temperature: f(62)},
		&models.Measurement{Station: "S1", Date: "2017-01-31", Temperature: f(63)},
		&models.Measurement{Station: "S2", Date: "2017-02-01", Temperature: f(64)},
	)

	tests := []struct {
		name   string
		filter MeasurementFilter
		want   []float64
	}{
		{"open ended", MeasurementFilter{From: "2017-01-01"}, []float64{61, 62, 63, 64}},
		{"closed range is inclusive", MeasurementFilter{From: "2017-01-01", To: s("2017-01-31")}, []float64{61, 62, 63}},
		{"station filter", MeasurementFilter{From: "2017-01-01", StationID: s("S2")}, []float64{62, 64}},
		{"all filters", MeasurementFilter{From: "2016-01-01", To: s("2017-01-31"), StationID: s("S1")}, []float64{60, 61, 63}},
		{"future range", MeasurementFilter{From: "2099-01-01"}, nil},
		{"inverted range", MeasurementFilter{From: "2017-02-01", To: s("2017-01-01")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms, err := repo.MeasurementsWhere(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("MeasurementsWhere: %v", err)
			}
			if len(ms) != len(tt.want) {
				t.Fatalf("got %d rows, want %d", len(ms), len(tt.want))
			}
			for i, want := range tt.want {
				if ms[i].Temperature == nil || *ms[i].Temperature != want {
					t.Errorf("row %d tobs = %v, want %v", i, ms[i].Temperature, want)
				}
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	repo, _ := setupTestRepo(t)
	if err := repo.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestCreateBatches_Empty(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateStationsBatch(ctx, nil); err != nil {
		t.Errorf("CreateStationsBatch(nil): %v", err)
	}
	if err := repo.CreateMeasurementsBatch(ctx, nil); err != nil {
		t.Errorf("CreateMeasurementsBatch(nil): %v", err)
	}
}
