package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonContent(schema interface{}) map[string]interface{} {
	return map[string]interface{}{
		"application/json": map[string]interface{}{"schema": schema},
	}
}

func errorResponse(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content":     jsonContent(map[string]string{"$ref": "#/components/schemas/Error"}),
	}
}

func dateParam(name, description string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "path",
		"description": description,
		"required":    true,
		"schema":      map[string]string{"type": "string", "format": "date", "example": "2017-01-01"},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 document for the climate API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	statsResponses := map[string]interface{}{
		"200": map[string]interface{}{
			"description": "Temperature aggregate",
			"content":     jsonContent(map[string]string{"$ref": "#/components/schemas/TemperatureStats"}),
		},
		"400": errorResponse("Malformed or non-existent date"),
		"404": errorResponse("No measurements in the requested range"),
		"500": errorResponse("Internal error"),
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Hawaii Climate API",
			"description": "Read-only queries over the Hawaii station and daily measurement dataset",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/v1.0/precipitation": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Trailing-year precipitation",
					"description": "Date to precipitation for the 365 days ending at the latest observation date. null means no reading.",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Date-keyed precipitation",
							"content": jsonContent(map[string]interface{}{
								"type":                 "object",
								"additionalProperties": map[string]interface{}{"type": "number", "nullable": true},
							}),
						},
						"503": errorResponse("Dataset is empty"),
					},
				},
			},
			"/api/v1.0/stations": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "All stations",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Stations in dataset order",
							"content": jsonContent(map[string]interface{}{
								"type":  "array",
								"items": map[string]string{"$ref": "#/components/schemas/Station"},
							}),
						},
					},
				},
			},
			"/api/v1.0/tobs": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Trailing-year temperatures at the most active station",
					"description": "The most active station is the one with the most measurement rows across the whole dataset.",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Station temperature series",
							"content": jsonContent(map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"station": map[string]string{"type": "string"},
									"start":   map[string]string{"type": "string", "format": "date"},
									"end":     map[string]string{"type": "string", "format": "date"},
									"temperatures": map[string]interface{}{
										"type":                 "object",
										"additionalProperties": map[string]string{"type": "number"},
									},
								},
							}),
						},
						"503": errorResponse("Dataset is empty"),
					},
				},
			},
			"/api/v1.0/{start}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Temperature statistics from a start date",
					"parameters": []map[string]interface{}{dateParam("start", "Inclusive start date (YYYY-MM-DD)")},
					"responses":  statsResponses,
				},
			},
			"/api/v1.0/{start}/{end}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Temperature statistics for a date range",
					"parameters": []map[string]interface{}{
						dateParam("start", "Inclusive start date (YYYY-MM-DD)"),
						dateParam("end", "Inclusive end date (YYYY-MM-DD)"),
					},
					"responses": statsResponses,
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Pings the data store",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Data store reachable"},
						"503": map[string]interface{}{"description": "Data store unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Prometheus metrics",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"Station": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":        map[string]string{"type": "integer"},
						"station":   map[string]string{"type": "string"},
						"name":      map[string]string{"type": "string"},
						"latitude":  map[string]string{"type": "number"},
						"longitude": map[string]string{"type": "number"},
						"elevation": map[string]string{"type": "number"},
					},
				},
				"TemperatureStats": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"TMIN":  map[string]string{"type": "number"},
						"TAVG":  map[string]string{"type": "number"},
						"TMAX":  map[string]string{"type": "number"},
						"count": map[string]string{"type": "integer"},
					},
				},
				"Error": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
