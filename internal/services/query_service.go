package services

import (
	"context"
	"errors"
	"time"

	"climate-platform/internal/analytics"
	"climate-platform/internal/models"
	"climate-platform/internal/repository"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

// Operation names used for logs and metrics
const (
	OpPrecipitation    = "precipitation"
	OpStations         = "stations"
	OpMostActiveSeries = "most_active_temperature_series"
	OpTemperatureStats = "temperature_stats"
)

// QueryService answers the read-only climate queries.
// Every call is independent and holds no state between calls.
type QueryService struct {
	store    repository.DataStore
	resolver *analytics.WindowResolver
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewQueryService creates a new query service
func NewQueryService(store repository.DataStore, resolver *analytics.WindowResolver, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *QueryService {
	return &QueryService{
		store:    store,
		resolver: resolver,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// GetPrecipitation returns date -> precipitation for the trailing year.
// A nil value means the dataset has no precipitation reading for that date.
func (s *QueryService) GetPrecipitation(ctx context.Context) (result map[string]*float64, err error) {
	defer s.observe(ctx, OpPrecipitation, time.Now(), &err)

	window, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	end := window.EndDate()
	ms, err := s.store.MeasurementsWhere(ctx, repository.MeasurementFilter{
		From: window.StartDate(),
		To:   &end,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.QueryRowsScanned.WithLabelValues(OpPrecipitation).Observe(float64(len(ms)))

	return analytics.PrecipitationSeries(ms), nil
}

// GetStations returns every station in DataStore order
func (s *QueryService) GetStations(ctx context.Context) (stations []models.Station, err error) {
	defer s.observe(ctx, OpStations, time.Now(), &err)

	return s.store.AllStations(ctx)
}

// GetMostActiveTemperatureSeries returns the trailing-year temperature series
// of the station with the most measurements across the whole dataset
func (s *QueryService) GetMostActiveTemperatureSeries(ctx context.Context) (series *models.StationSeries, err error) {
	defer s.observe(ctx, OpMostActiveSeries, time.Now(), &err)

	window, err := s.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	all, err := s.store.AllMeasurements(ctx)
	if err != nil {
		return nil, err
	}

	stationID, err := analytics.MostActiveStation(all)
	if err != nil {
		return nil, err
	}

	end := window.EndDate()
	ms, err := s.store.MeasurementsWhere(ctx, repository.MeasurementFilter{
		From:      window.StartDate(),
		To:        &end,
		StationID: &stationID,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.QueryRowsScanned.WithLabelValues(OpMostActiveSeries).Observe(float64(len(all) + len(ms)))

	s.logger.Debug(ctx, "[QUERY_MOST_ACTIVE] Most active station selected", logging.Fields{
		"station":      stationID,
		"window_start": window.StartDate(),
		"window_end":   end,
		"rows":         len(ms),
	})

	return &models.StationSeries{
		Station:      stationID,
		Start:        window.StartDate(),
		End:          end,
		Temperatures: analytics.TemperatureSeries(ms),
	}, nil
}

// GetTemperatureStats returns min/avg/max temperature for start <= date (<= end).
// Dates are validated before the DataStore is touched.
func (s *QueryService) GetTemperatureStats(ctx context.Context, start string, end *string) (stats models.TemperatureStats, err error) {
	defer s.observe(ctx, OpTemperatureStats, time.Now(), &err)

	if !analytics.IsValidDate(start) {
		return models.TemperatureStats{}, &models.InvalidDateFormatError{Field: "start", Value: start}
	}
	if end != nil && !analytics.IsValidDate(*end) {
		return models.TemperatureStats{}, &models.InvalidDateFormatError{Field: "end", Value: *end}
	}

	ms, err := s.store.MeasurementsWhere(ctx, repository.MeasurementFilter{From: start, To: end})
	if err != nil {
		return models.TemperatureStats{}, err
	}
	s.metrics.QueryRowsScanned.WithLabelValues(OpTemperatureStats).Observe(float64(len(ms)))

	stats, err = analytics.MinMaxAvgTemperature(ms)
	if err != nil {
		var noMatch *models.NoMatchingRecordsError
		if errors.As(err, &noMatch) {
			noMatch.Start = start
			if end != nil {
				noMatch.End = *end
			}
		}
		return models.TemperatureStats{}, err
	}

	return stats, nil
}

// StationActivity returns per-station row counts in DataStore order
func (s *QueryService) StationActivity(ctx context.Context) ([]models.StationActivity, error) {
	all, err := s.store.AllMeasurements(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, &models.EmptyDatasetError{Resource: "measurement"}
	}
	return analytics.StationActivity(all), nil
}

// observe records duration and failures for an operation
func (s *QueryService) observe(ctx context.Context, operation string, start time.Time, errp *error) {
	duration := time.Since(start)
	s.metrics.QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())

	err := *errp
	if err == nil {
		s.logger.Debug(ctx, "[QUERY_COMPLETE] Query completed", logging.Fields{
			"operation":   operation,
			"duration_ms": duration.Milliseconds(),
		})
		return
	}

	kind := ErrorKind(err)
	s.metrics.RecordQueryError(operation, kind)

	fields := logging.Fields{
		"operation":   operation,
		"error_type":  kind,
		"duration_ms": duration.Milliseconds(),
	}
	if kind == ErrKindInternal || kind == ErrKindEmptyDataset {
		s.logger.Error(ctx, "[QUERY_ERROR] Query failed", fields, err)
		return
	}

	// Caller errors and empty results are expected outcomes
	fields["reason"] = err.Error()
	s.logger.Info(ctx, "[QUERY_REJECTED] Query produced no result", fields)
}

// Error kinds reported in metrics and mapped to status codes by the transport
const (
	ErrKindInvalidDate  = "invalid_date"
	ErrKindEmptyDataset = "empty_dataset"
	ErrKindNoMatch      = "no_matching_records"
	ErrKindInternal     = "internal"
)

// ErrorKind classifies err into one of the ErrKind values
func ErrorKind(err error) string {
	var (
		dateErr  *models.InvalidDateFormatError
		emptyErr *models.EmptyDatasetError
		noMatch  *models.NoMatchingRecordsError
	)
	switch {
	case errors.As(err, &dateErr):
		return ErrKindInvalidDate
	case errors.As(err, &emptyErr):
		return ErrKindEmptyDataset
	case errors.As(err, &noMatch):
		return ErrKindNoMatch
	default:
		return ErrKindInternal
	}
}
