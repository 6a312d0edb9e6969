package analytics

import (
	"math"

	"climate-platform/internal/models"
)

// MinMaxAvgTemperature computes the temperature aggregate over ms.
// Rows without a finite temperature are skipped. The average is clamped into
// [min, max] so float rounding can never push it outside the extrema.
func MinMaxAvgTemperature(ms []models.Measurement) (models.TemperatureStats, error) {
	var (
		stats models.TemperatureStats
		sum   float64
	)

	for _, m := range ms {
		if !finite(m.Temperature) {
			continue
		}
		t := *m.Temperature

		if stats.Count == 0 || t < stats.Min {
			stats.Min = t
		}
		if stats.Count == 0 || t > stats.Max {
			stats.Max = t
		}
		sum += t
		stats.Count++
	}

	if stats.Count == 0 {
		return models.TemperatureStats{}, &models.NoMatchingRecordsError{}
	}

	stats.Avg = sum / float64(stats.Count)
	if stats.Avg < stats.Min {
		stats.Avg = stats.Min
	}
	if stats.Avg > stats.Max {
		stats.Avg = stats.Max
	}

	return stats, nil
}

// PrecipitationSeries maps each date to its precipitation.
// Later rows overwrite earlier rows for the same date; nil is kept as no data
// and non-finite readings are reported as no data.
func PrecipitationSeries(ms []models.Measurement) map[string]*float64 {
	series := make(map[string]*float64, len(ms))
	for _, m := range ms {
		if m.Precipitation != nil && !finite(m.Precipitation) {
			series[m.Date] = nil
			continue
		}
		series[m.Date] = m.Precipitation
	}
	return series
}

// TemperatureSeries maps each date to its temperature.
// Later rows overwrite earlier rows for the same date; rows without a finite temperature are skipped.
func TemperatureSeries(ms []models.Measurement) map[string]float64 {
	series := make(map[string]float64, len(ms))
	for _, m := range ms {
		if !finite(m.Temperature) {
			continue
		}
		series[m.Date] = *m.Temperature
	}
	return series
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
