package analytics

import (
	"climate-platform/internal/models"
)

// StationActivity counts rows per station. Stations are returned in the order
// their first row appears in ms.
func StationActivity(ms []models.Measurement) []models.StationActivity {
	index := make(map[string]int)
	activity := make([]models.StationActivity, 0)

	for _, m := range ms {
		i, ok := index[m.Station]
		if !ok {
			i = len(activity)
			index[m.Station] = i
			activity = append(activity, models.StationActivity{Station: m.Station})
		}
		activity[i].Count++
	}

	return activity
}

// MostActiveStation returns the station with the most rows.
// Ties go to the station whose first row appears earliest in ms.
func MostActiveStation(ms []models.Measurement) (string, error) {
	if len(ms) == 0 {
		return "", &models.EmptyDatasetError{Resource: "measurement"}
	}

	best := models.StationActivity{}
	for _, a := range StationActivity(ms) {
		if a.Count > best.Count {
			best = a
		}
	}

	return best.Station, nil
}
