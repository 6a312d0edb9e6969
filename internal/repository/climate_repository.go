package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"climate-platform/internal/models"
	"climate-platform/pkg/database"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

// DataStore provides read-only access to the climate dataset.
// Every sequence is returned in storage insertion order (ascending row id);
// order-sensitive callers rely on this.
type DataStore interface {
	AllStations(ctx context.Context) ([]models.Station, error)
	AllMeasurements(ctx context.Context) ([]models.Measurement, error)
	MeasurementsWhere(ctx context.Context, filter MeasurementFilter) ([]models.Measurement, error)

	// MaxDate returns the latest observation date, or *models.EmptyDatasetError
	MaxDate(ctx context.Context) (string, error)

	HealthCheck(ctx context.Context) error
}

// DatasetWriter loads the dataset snapshot. Only the ingester uses it.
type DatasetWriter interface {
	CreateStationsBatch(ctx context.Context, stations []*models.Station) error
	CreateMeasurementsBatch(ctx context.Context, measurements []*models.Measurement) error
}

// ClimateRepository is the full repository surface
type ClimateRepository interface {
	DataStore
	DatasetWriter
}

// MeasurementFilter selects measurements with From <= date and,
// when set, date <= To and station = StationID
type MeasurementFilter struct {
	From      string
	To        *string
	StationID *string
}

// climateRepository implements ClimateRepository
type climateRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewClimateRepository creates a new climate repository
func NewClimateRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ClimateRepository {
	return &climateRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const stationColumns = `id, station, name, latitude, longitude, elevation`

const measurementColumns = `id, station, date, prcp, tobs`

// AllStations retrieves every station in insertion order
func (r *climateRepository) AllStations(ctx context.Context) ([]models.Station, error) {
	query := `SELECT ` + stationColumns + ` FROM station ORDER BY id`

	stations := []models.Station{}
	if err := r.db.SelectContext(ctx, "all_stations", &stations, query); err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}

	return stations, nil
}

// AllMeasurements retrieves every measurement in insertion order
func (r *climateRepository) AllMeasurements(ctx context.Context) ([]models.Measurement, error) {
	query := `SELECT ` + measurementColumns + ` FROM measurement ORDER BY id`

	measurements := []models.Measurement{}
	if err := r.db.SelectContext(ctx, "all_measurements", &measurements, query); err != nil {
		return nil, fmt.Errorf("failed to list measurements: %w", err)
	}

	return measurements, nil
}

// MeasurementsWhere retrieves measurements matching filter in insertion order
func (r *climateRepository) MeasurementsWhere(ctx context.Context, filter MeasurementFilter) ([]models.Measurement, error) {
	query := `SELECT ` + measurementColumns + ` FROM measurement WHERE date >= ?`
	args := []interface{}{filter.From}

	if filter.To != nil {
		query += ` AND date <= ?`
		args = append(args, *filter.To)
	}

	if filter.StationID != nil {
		query += ` AND station = ?`
		args = append(args, *filter.StationID)
	}

	query += ` ORDER BY id`

	measurements := []models.Measurement{}
	err := r.db.SelectContext(ctx, "measurements_where", &measurements, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_MEASUREMENTS_WHERE] Measurements selected", logging.Fields{
		"from":    filter.From,
		"to":      stringOrEmpty(filter.To),
		"station": stringOrEmpty(filter.StationID),
		"rows":    len(measurements),
	})

	return measurements, nil
}

// MaxDate returns the latest observation date in the dataset
func (r *climateRepository) MaxDate(ctx context.Context) (string, error) {
	var maxDate sql.NullString
	if err := r.db.GetContext(ctx, "max_date", &maxDate, `SELECT MAX(date) FROM measurement`); err != nil {
		return "", fmt.Errorf("failed to get max date: %w", err)
	}

	if !maxDate.Valid {
		return "", &models.EmptyDatasetError{Resource: "measurement"}
	}

	return maxDate.String, nil
}

// CreateStationsBatch inserts stations in a single transaction.
// Stations already present are left untouched.
func (r *climateRepository) CreateStationsBatch(ctx context.Context, stations []*models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	query := r.db.Rebind(`
		INSERT INTO station (station, name, latitude, longitude, elevation)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (station) DO NOTHING
	`)

	return r.inTx(ctx, "insert_stations", len(stations), query, func(exec func(args ...interface{}) error) error {
		for _, s := range stations {
			if err := exec(s.Station, s.Name, s.Latitude, s.Longitude, s.Elevation); err != nil {
				return fmt.Errorf("failed to insert station %s: %w", s.Station, err)
			}
		}
		return nil
	})
}

// CreateMeasurementsBatch inserts measurements in a single transaction.
// Duplicate (station, date) rows are kept as-is.
func (r *climateRepository) CreateMeasurementsBatch(ctx context.Context, measurements []*models.Measurement) error {
	if len(measurements) == 0 {
		return nil
	}

	query := r.db.Rebind(`
		INSERT INTO measurement (station, date, prcp, tobs)
		VALUES (?, ?, ?, ?)
	`)

	return r.inTx(ctx, "insert_measurements", len(measurements), query, func(exec func(args ...interface{}) error) error {
		for _, m := range measurements {
			if err := exec(m.Station, m.Date, m.Precipitation, m.Temperature); err != nil {
				return fmt.Errorf("failed to insert measurement %s/%s: %w", m.Station, m.Date, err)
			}
		}
		return nil
	})
}

// inTx prepares query inside a transaction and hands fn an executor for it
func (r *climateRepository) inTx(ctx context.Context, queryType string, count int, query string, fn func(exec func(args ...interface{}) error) error) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"query_type":  queryType,
			"count":       count,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	err = fn(func(args ...interface{}) error {
		_, err := stmt.ExecContext(ctx, args...)
		return err
	})
	if err != nil {
		r.metrics.RecordDBError("batch_insert_error")
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// HealthCheck performs a repository health check
func (r *climateRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
