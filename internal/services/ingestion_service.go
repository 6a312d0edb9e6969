package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"climate-platform/internal/models"
	"climate-platform/internal/repository"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

var (
	stationHeader     = []string{"station", "name", "latitude", "longitude", "elevation"}
	measurementHeader = []string{"station", "date", "prcp", "tobs"}
)

// IngestionService loads the climate dataset snapshot from CSV files
type IngestionService struct {
	writer  repository.DatasetWriter
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Stations     FileIngestionResult
	Measurements FileIngestionResult
	Duration     time.Duration
	Errors       []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(writer repository.DatasetWriter, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		writer:  writer,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestFiles loads stations first, then measurements.
// Either path may be empty to skip that file.
func (s *IngestionService) IngestFiles(ctx context.Context, stationsPath, measurementsPath string, batchSize int) (*IngestionResult, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	startTime := time.Now()
	s.logger.Info(ctx, "[INGEST_START] Starting dataset ingestion", logging.Fields{
		"stations_file":     stationsPath,
		"measurements_file": measurementsPath,
		"batch_size":        batchSize,
		"stage":             "INITIALIZATION",
	})

	result := &IngestionResult{Errors: make([]string, 0)}

	if stationsPath != "" {
		fr, err := s.ingestStations(ctx, stationsPath, batchSize, result)
		if err != nil {
			return nil, fmt.Errorf("failed to ingest %s: %w", stationsPath, err)
		}
		result.Stations = *fr
		s.logFileComplete(ctx, stationsPath, fr)
	}

	if measurementsPath != "" {
		fr, err := s.ingestMeasurements(ctx, measurementsPath, batchSize, result)
		if err != nil {
			return nil, fmt.Errorf("failed to ingest %s: %w", measurementsPath, err)
		}
		result.Measurements = *fr
		s.logFileComplete(ctx, measurementsPath, fr)
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Dataset ingestion completed", logging.Fields{
		"stations_loaded":     result.Stations.SuccessfulRecords,
		"measurements_loaded": result.Measurements.SuccessfulRecords,
		"failed_records":      result.Stations.FailedRecords + result.Measurements.FailedRecords,
		"duration_seconds":    result.Duration.Seconds(),
		"error_count":         len(result.Errors),
		"stage":               "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) logFileComplete(ctx context.Context, path string, fr *FileIngestionResult) {
	s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested", logging.Fields{
		"file_path":          path,
		"total_records":      fr.TotalRecords,
		"successful_records": fr.SuccessfulRecords,
		"failed_records":     fr.FailedRecords,
		"stage":              "FILE_COMPLETE",
	})
}

func (s *IngestionService) ingestStations(ctx context.Context, path string, batchSize int, result *IngestionResult) (*FileIngestionResult, error) {
	fr := &FileIngestionResult{}
	batch := make([]*models.Station, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.writer.CreateStationsBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert station batch: %w", err)
		}
		s.recordBatch(len(batch))
		fr.SuccessfulRecords += len(batch)
		batch = batch[:0]
		return nil
	}

	err := readCSV(path, stationHeader, func(line int, cols []string) error {
		fr.TotalRecords++
		raw := models.RawStationRecord{
			Station:   cols[0],
			Name:      cols[1],
			Latitude:  cols[2],
			Longitude: cols[3],
			Elevation: cols[4],
		}
		station, err := raw.ToStation()
		if err != nil {
			fr.FailedRecords++
			s.rejectRow(ctx, path, line, err, result)
			return nil
		}
		batch = append(batch, station)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return fr, nil
}

func (s *IngestionService) ingestMeasurements(ctx context.Context, path string, batchSize int, result *IngestionResult) (*FileIngestionResult, error) {
	fr := &FileIngestionResult{}
	batch := make([]*models.Measurement, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.writer.CreateMeasurementsBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert measurement batch: %w", err)
		}
		s.recordBatch(len(batch))
		fr.SuccessfulRecords += len(batch)
		batch = batch[:0]
		return nil
	}

	err := readCSV(path, measurementHeader, func(line int, cols []string) error {
		fr.TotalRecords++
		raw := models.RawMeasurementRecord{
			Station:       cols[0],
			Date:          cols[1],
			Precipitation: cols[2],
			Temperature:   cols[3],
		}
		m, err := raw.ToMeasurement()
		if err != nil {
			fr.FailedRecords++
			s.rejectRow(ctx, path, line, err, result)
			return nil
		}
		batch = append(batch, m)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return fr, nil
}

func (s *IngestionService) recordBatch(n int) {
	s.metrics.IngestionBatchSize.Observe(float64(n))
	s.metrics.IngestionRecordsTotal.Add(float64(n))
}

func (s *IngestionService) rejectRow(ctx context.Context, path string, line int, err error, result *IngestionResult) {
	s.metrics.RecordIngestionError("conversion_error")
	result.Errors = append(result.Errors, fmt.Sprintf("%s:%d: %v", path, line, err))

	rowLog := s.logger.WithFields(logging.Fields{
		"file_path": path,
		"stage":     "ROW_VALIDATION",
	})
	fields := logging.Fields{"line": line}
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		fields["field"] = vErr.Field
		fields["value"] = vErr.Value
	}
	rowLog.Warn(ctx, "[INGEST_ROW_REJECTED] Skipping invalid row", fields)
}

// readCSV checks the header row against want (order-sensitive, case-insensitive)
// and calls fn for each data row with its 1-based line number
func readCSV(path string, want []string, fn func(line int, cols []string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(want)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("file is empty, expected header %s", strings.Join(want, ","))
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range want {
		if !strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")), col) {
			return fmt.Errorf("unexpected header %q, expected %s", strings.Join(header, ","), strings.Join(want, ","))
		}
	}

	line := 1
	for {
		cols, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("error reading line %d: %w", line, err)
		}
		if err := fn(line, cols); err != nil {
			return err
		}
	}
}
