package models

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// RawStationRecord represents a single row of the station CSV snapshot
type RawStationRecord struct {
	Station   string
	Name      string
	Latitude  string
	Longitude string
	Elevation string
}

// RawMeasurementRecord represents a single row of the measurement CSV snapshot.
// Used during ingestion only.
type RawMeasurementRecord struct {
	Station       string
	Date          string
	Precipitation string // empty means no data
	Temperature   string
}

// ToStation converts RawStationRecord to Station
func (r *RawStationRecord) ToStation() (*Station, error) {
	id := strings.TrimSpace(r.Station)
	if id == "" {
		return nil, &ValidationError{Field: "station", Value: r.Station, Message: "station identifier is required"}
	}

	station := &Station{
		Station: id,
		Name:    strings.TrimSpace(r.Name),
	}

	var err error
	if station.Latitude, err = parseFloatField("latitude", r.Latitude); err != nil {
		return nil, err
	}
	if station.Longitude, err = parseFloatField("longitude", r.Longitude); err != nil {
		return nil, err
	}
	if station.Elevation, err = parseFloatField("elevation", r.Elevation); err != nil {
		return nil, err
	}

	return station, nil
}

// ToMeasurement converts RawMeasurementRecord to Measurement.
// An empty precipitation cell becomes nil rather than zero.
func (r *RawMeasurementRecord) ToMeasurement() (*Measurement, error) {
	stationID := strings.TrimSpace(r.Station)
	if stationID == "" {
		return nil, &ValidationError{Field: "station", Value: r.Station, Message: "station identifier is required"}
	}

	date := strings.TrimSpace(r.Date)
	if _, err := time.Parse(DateLayout, date); err != nil || len(date) != len(DateLayout) {
		return nil, &ValidationError{
			Field:   "date",
			Value:   r.Date,
			Message: "invalid date format, expected YYYY-MM-DD",
		}
	}

	m := &Measurement{
		Station: stationID,
		Date:    date,
	}

	if p := strings.TrimSpace(r.Precipitation); p != "" {
		v, err := parseFloatField("prcp", p)
		if err != nil {
			return nil, err
		}
		m.Precipitation = &v
	}

	if t := strings.TrimSpace(r.Temperature); t != "" {
		v, err := parseFloatField("tobs", t)
		if err != nil {
			return nil, err
		}
		m.Temperature = &v
	}

	return m, nil
}

func parseFloatField(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   value,
			Message: "invalid numeric value for " + field,
		}
	}
	// ParseFloat accepts NaN and Inf spellings
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{
			Field:   field,
			Value:   value,
			Message: "non-finite value for " + field,
		}
	}
	return v, nil
}

// ValidationError represents a data validation error in the source snapshot
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
