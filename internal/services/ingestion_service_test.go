package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"climate-platform/internal/models"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

type recordingWriter struct {
	stationBatches     [][]*models.Station
	measurementBatches [][]*models.Measurement
	failOn             string
}

func (w *recordingWriter) CreateStationsBatch(ctx context.Context, stations []*models.Station) error {
	if w.failOn == "stations" {
		return errors.New("disk full")
	}
	w.stationBatches = append(w.stationBatches, append([]*models.Station(nil), stations...))
	return nil
}

func (w *recordingWriter) CreateMeasurementsBatch(ctx context.Context, measurements []*models.Measurement) error {
	if w.failOn == "measurements" {
		return errors.New("disk full")
	}
	w.measurementBatches = append(w.measurementBatches, append([]*models.Measurement(nil), measurements...))
	return nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestIngestion(t *testing.T, w *recordingWriter) (*IngestionService, *metrics.Collector) {
	t.Helper()
	logger := logging.New(io.Discard, logging.FormatJSON, "ingest-test", "test", logging.DebugLevel)
	collector := metrics.NewCollector("ingest_test", prometheus.NewRegistry())
	return NewIngestionService(w, logger, collector), collector
}

const stationsCSV = `station,name,latitude,longitude,elevation
USC00519397,"WAIKIKI 717.2, HI US",21.2716,-157.8168,3.0
USC00513117,"KANEOHE 838.1, HI US",21.4234,-157.8015,14.6
USC00514830,"KUALOA RANCH HEADQUARTERS 886.9, HI US",21.5213,-157.8374,7.0
`

const measurementsCSV = `station,date,prcp,tobs
USC00519397,2010-01-01,0.08,65
USC00519397,2010-01-02,,63
USC00513117,2010-01-01,0.28,67
USC00513117,2010-13-01,0.1,70
USC00514830,2010-01-03,abc,72
USC00514830,2010-01-04,0.0,74
`

func TestIngestFiles(t *testing.T) {
	w := &recordingWriter{}
	svc, collector := newTestIngestion(t, w)

	result, err := svc.IngestFiles(context.Background(),
		writeFile(t, "stations.csv", stationsCSV),
		writeFile(t, "measurements.csv", measurementsCSV),
		2)
	if err != nil {
		t.Fatalf("IngestFiles() error = %v", err)
	}

	if result.Stations.SuccessfulRecords != 3 || result.Stations.FailedRecords != 0 {
		t.Errorf("stations = %+v, want 3 ok", result.Stations)
	}
	if result.Measurements.TotalRecords != 6 || result.Measurements.SuccessfulRecords != 4 || result.Measurements.FailedRecords != 2 {
		t.Errorf("measurements = %+v, want 6 total, 4 ok, 2 failed", result.Measurements)
	}
	if len(result.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(result.Errors), result.Errors)
	}

	// 3 stations in batches of 2 -> [2, 1]; 4 measurements -> [2, 2]
	if len(w.stationBatches) != 2 || len(w.stationBatches[1]) != 1 {
		t.Errorf("station batches = %d, want sizes [2 1]", len(w.stationBatches))
	}
	if len(w.measurementBatches) != 2 {
		t.Errorf("measurement batches = %d, want 2", len(w.measurementBatches))
	}

	if got := w.stationBatches[0][0].Name; got != "WAIKIKI 717.2, HI US" {
		t.Errorf("quoted station name = %q", got)
	}
	if w.measurementBatches[0][1].Precipitation != nil {
		t.Error("empty prcp cell should load as nil")
	}

	if got := testutil.ToFloat64(collector.IngestionRecordsTotal); got != 7 {
		t.Errorf("ingestion_records_processed_total = %v, want 7", got)
	}
	if got := testutil.ToFloat64(collector.IngestionErrorsTotal.WithLabelValues("conversion_error")); got != 2 {
		t.Errorf("ingestion_errors_total = %v, want 2", got)
	}
}

func TestIngestFiles_SkipsEmptyPath(t *testing.T) {
	w := &recordingWriter{}
	svc, _ := newTestIngestion(t, w)

	result, err := svc.IngestFiles(context.Background(), "", writeFile(t, "m.csv", measurementsCSV), 100)
	if err != nil {
		t.Fatalf("IngestFiles() error = %v", err)
	}
	if len(w.stationBatches) != 0 {
		t.Error("stations written although no file was given")
	}
	if result.Measurements.SuccessfulRecords != 4 {
		t.Errorf("measurements loaded = %d, want 4", result.Measurements.SuccessfulRecords)
	}
}

func TestIngestFiles_Errors(t *testing.T) {
	tests := []struct {
		name        string
		stations    string
		failOn      string
		batchSize   int
		errContains string
	}{
		{
			name:        "wrong header",
			stations:    "id,name,lat,lon,elev\nA,B,1,2,3\n",
			batchSize:   10,
			errContains: "unexpected header",
		},
		{
			name:        "empty file",
			stations:    "",
			batchSize:   10,
			errContains: "file is empty",
		},
		{
			name:        "wrong column count",
			stations:    "station,name,latitude,longitude,elevation\nA,B,1,2\n",
			batchSize:   10,
			errContains: "line 2",
		},
		{
			name:        "writer failure",
			stations:    stationsCSV,
			failOn:      "stations",
			batchSize:   10,
			errContains: "disk full",
		},
		{
			name:        "non-positive batch size",
			stations:    stationsCSV,
			batchSize:   0,
			errContains: "batch size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestIngestion(t, &recordingWriter{failOn: tt.failOn})

			_, err := svc.IngestFiles(context.Background(), writeFile(t, "s.csv", tt.stations), "", tt.batchSize)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error = %v, want it to contain %q", err, tt.errContains)
			}
		})
	}
}

func TestIngestFiles_MissingFile(t *testing.T) {
	svc, _ := newTestIngestion(t, &recordingWriter{})

	_, err := svc.IngestFiles(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "", 10)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}
