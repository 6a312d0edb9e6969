package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTemperatureStats_MarshalJSON(t *testing.T) {
	stats := TemperatureStats{Min: 54, Avg: 71.663781163434903, Max: 85, Count: 1444}

	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]float64
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if got["TMIN"] != 54 || got["TMAX"] != 85 {
		t.Errorf("TMIN/TMAX = %v/%v, want 54/85", got["TMIN"], got["TMAX"])
	}
	if got["TAVG"] != 71.66 {
		t.Errorf("TAVG = %v, want 71.66", got["TAVG"])
	}
	if got["count"] != 1444 {
		t.Errorf("count = %v, want 1444", got["count"])
	}

	if stats.Avg != 71.663781163434903 {
		t.Error("rendering must not change the stored average")
	}
}

func TestWindow_DateStrings(t *testing.T) {
	w := Window{
		Start: time.Date(2016, 8, 23, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2017, 8, 23, 0, 0, 0, 0, time.UTC),
	}
	if w.StartDate() != "2016-08-23" || w.EndDate() != "2017-08-23" {
		t.Errorf("got %s..%s", w.StartDate(), w.EndDate())
	}
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  interface {
			error
			IsTransient() bool
		}
		want string
	}{
		{"invalid date with field", &InvalidDateFormatError{Field: "start", Value: "2021-02-29"}, `invalid start "2021-02-29", expected YYYY-MM-DD`},
		{"invalid date without field", &InvalidDateFormatError{Value: "x"}, `invalid date "x", expected YYYY-MM-DD`},
		{"empty dataset", &EmptyDatasetError{Resource: "measurement"}, "dataset is empty: no measurement records"},
		{"no match open range", &NoMatchingRecordsError{Start: "2099-01-01"}, "no measurements on or after 2099-01-01"},
		{"no match closed range", &NoMatchingRecordsError{Start: "2017-01-01", End: "2017-01-31"}, "no measurements between 2017-01-01 and 2017-01-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			if tt.err.IsTransient() {
				t.Error("query errors should not be transient")
			}
		})
	}
}
