// Package analytics holds the query engine: date validation, trailing-window
// resolution, station ranking and temperature/precipitation aggregation.
// Nothing here touches storage or transport.
package analytics

import (
	"time"

	"climate-platform/internal/models"
)

// IsValidDate reports whether s is a YYYY-MM-DD string naming a real calendar date
func IsValidDate(s string) bool {
	if len(s) != len(models.DateLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i == 4 || i == 7 {
			if c != '-' {
				return false
			}
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}

	// time.Parse rejects month 13, day 31 in 30-day months and Feb 29 in common years
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

// ParseDate validates s and returns it as a UTC midnight time
func ParseDate(field, s string) (time.Time, error) {
	if !IsValidDate(s) {
		return time.Time{}, &models.InvalidDateFormatError{Field: field, Value: s}
	}
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, &models.InvalidDateFormatError{Field: field, Value: s}
	}
	return d, nil
}
