package models

import "fmt"

// InvalidDateFormatError is returned when a caller supplies a malformed
// or non-existent calendar date
type InvalidDateFormatError struct {
	Field string
	Value string
}

func (e *InvalidDateFormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", e.Value)
	}
	return fmt.Sprintf("invalid %s %q, expected YYYY-MM-DD", e.Field, e.Value)
}

// IsTransient returns false as validation errors are permanent
func (e *InvalidDateFormatError) IsTransient() bool {
	return false
}

// EmptyDatasetError means the dataset holds no records at all.
// This is a provisioning fault rather than a query outcome.
type EmptyDatasetError struct {
	Resource string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("dataset is empty: no %s records", e.Resource)
}

// IsTransient returns false; the dataset does not change for the process lifetime
func (e *EmptyDatasetError) IsTransient() bool {
	return false
}

// NoMatchingRecordsError is returned when a valid query matched zero rows
type NoMatchingRecordsError struct {
	Start string
	End   string
}

func (e *NoMatchingRecordsError) Error() string {
	if e.End == "" {
		return fmt.Sprintf("no measurements on or after %s", e.Start)
	}
	return fmt.Sprintf("no measurements between %s and %s", e.Start, e.End)
}

// IsTransient returns false
func (e *NoMatchingRecordsError) IsTransient() bool {
	return false
}
