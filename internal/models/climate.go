package models

import (
	"encoding/json"
	"math"
	"time"
)

// DateLayout is the calendar date form used for observation dates
const DateLayout = "2006-01-02"

// Station represents a fixed reporting location
type Station struct {
	ID        int64   `json:"id" db:"id"`
	Station   string  `json:"station" db:"station"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Elevation float64 `json:"elevation" db:"elevation"`
}

// Measurement represents one daily observation row for a station.
// NULL precipitation is kept as nil; it means "no data", not zero.
type Measurement struct {
	ID            int64    `json:"id" db:"id"`
	Station       string   `json:"station" db:"station"`
	Date          string   `json:"date" db:"date"`
	Precipitation *float64 `json:"prcp" db:"prcp"`
	Temperature   *float64 `json:"tobs" db:"tobs"`
}

// Window is a closed date range used to scope trailing-year queries
type Window struct {
	Start time.Time
	End   time.Time
}

// StartDate returns the window start as YYYY-MM-DD
func (w Window) StartDate() string {
	return w.Start.Format(DateLayout)
}

// EndDate returns the window end as YYYY-MM-DD
func (w Window) EndDate() string {
	return w.End.Format(DateLayout)
}

// TemperatureStats holds the min/avg/max aggregate over a set of measurements.
// Avg keeps full precision; only the JSON rendering rounds it.
type TemperatureStats struct {
	Min   float64
	Avg   float64
	Max   float64
	Count int
}

// RoundedAvg returns the average rounded to two decimal digits
func (s TemperatureStats) RoundedAvg() float64 {
	return math.Round(s.Avg*100) / 100
}

// MarshalJSON renders the aggregate with the TMIN/TAVG/TMAX keys
func (s TemperatureStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Min   float64 `json:"TMIN"`
		Avg   float64 `json:"TAVG"`
		Max   float64 `json:"TMAX"`
		Count int     `json:"count"`
	}{
		Min:   s.Min,
		Avg:   s.RoundedAvg(),
		Max:   s.Max,
		Count: s.Count,
	})
}

// StationSeries is a date-keyed temperature series for a single station
type StationSeries struct {
	Station      string             `json:"station"`
	Start        string             `json:"start"`
	End          string             `json:"end"`
	Temperatures map[string]float64 `json:"temperatures"`
}

// StationActivity is the number of measurement rows recorded by a station
type StationActivity struct {
	Station string `json:"station"`
	Count   int    `json:"count"`
}
