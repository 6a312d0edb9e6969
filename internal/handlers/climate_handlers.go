package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climate-platform/internal/models"
	"climate-platform/internal/services"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

// HealthChecker reports whether the backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ClimateHandler handles the climate API endpoints
type ClimateHandler struct {
	queries *services.QueryService
	health  HealthChecker
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewClimateHandler creates a new climate handler
func NewClimateHandler(
	queries *services.QueryService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ClimateHandler {
	return &ClimateHandler{
		queries: queries,
		health:  health,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Hawaii Climate API</title></head>
<body>
<h1>Hawaii Climate API</h1>
<p>Available routes:</p>
<ul>
<li><a href="/api/v1.0/precipitation">/api/v1.0/precipitation</a> - precipitation for the last year of data</li>
<li><a href="/api/v1.0/stations">/api/v1.0/stations</a> - all stations</li>
<li><a href="/api/v1.0/tobs">/api/v1.0/tobs</a> - last year of temperatures at the most active station</li>
<li>/api/v1.0/&lt;start&gt; - TMIN, TAVG, TMAX from start (YYYY-MM-DD)</li>
<li>/api/v1.0/&lt;start&gt;/&lt;end&gt; - TMIN, TAVG, TMAX between start and end inclusive</li>
<li><a href="/docs">/docs</a> - API documentation</li>
</ul>
</body>
</html>
`

// Index handles GET /
func (h *ClimateHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, indexPage)
}

// GetPrecipitation handles GET /api/v1.0/precipitation
func (h *ClimateHandler) GetPrecipitation(w http.ResponseWriter, r *http.Request) {
	series, err := h.queries.GetPrecipitation(r.Context())
	if err != nil {
		h.sendQueryError(w, r, err)
		return
	}
	h.sendJSON(w, r, series, http.StatusOK)
}

// GetStations handles GET /api/v1.0/stations
func (h *ClimateHandler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.queries.GetStations(r.Context())
	if err != nil {
		h.sendQueryError(w, r, err)
		return
	}
	if stations == nil {
		stations = []models.Station{}
	}
	h.sendJSON(w, r, stations, http.StatusOK)
}

// GetTemperatureObservations handles GET /api/v1.0/tobs
func (h *ClimateHandler) GetTemperatureObservations(w http.ResponseWriter, r *http.Request) {
	series, err := h.queries.GetMostActiveTemperatureSeries(r.Context())
	if err != nil {
		h.sendQueryError(w, r, err)
		return
	}
	h.sendJSON(w, r, series, http.StatusOK)
}

// GetTemperatureStats handles GET /api/v1.0/{start} and /api/v1.0/{start}/{end}
func (h *ClimateHandler) GetTemperatureStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var end *string
	if e, ok := vars["end"]; ok {
		end = &e
	}

	stats, err := h.queries.GetTemperatureStats(r.Context(), vars["start"], end)
	if err != nil {
		h.sendQueryError(w, r, err)
		return
	}
	h.sendJSON(w, r, stats, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ClimateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.health.HealthCheck(ctx); err != nil {
		h.logger.Error(ctx, "[HEALTH_CHECK_FAILED] Data store unreachable", logging.Fields{}, err)
		h.metrics.RecordAPIError("unhealthy", "/health")
		status["status"] = "unhealthy"
		status["error"] = err.Error()
		h.sendJSON(w, r, status, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, r, status, http.StatusOK)
}

// StatusForError maps a query error onto an HTTP status code
func StatusForError(err error) int {
	switch services.ErrorKind(err) {
	case services.ErrKindInvalidDate:
		return http.StatusBadRequest
	case services.ErrKindNoMatch:
		return http.StatusNotFound
	case services.ErrKindEmptyDataset:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendQueryError renders a query service error. Internal failures get a
// generic message; the details are already logged by the service.
func (h *ClimateHandler) sendQueryError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusForError(err)
	h.metrics.RecordAPIError(services.ErrorKind(err), routeTemplate(r))

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "failed to process request"
	}
	h.sendError(w, r, message, status)
}

// sendJSON sends a JSON response
// The body is encoded before the status is written so that an
// unencodable value becomes a 500 instead of an empty 200.
func (h *ClimateHandler) sendJSON(w http.ResponseWriter, r *http.Request, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(r.Context(), "[API_ENCODE_ERROR] Failed to encode response", logging.Fields{
			"endpoint": routeTemplate(r),
		}, err)
		h.metrics.RecordAPIError("encode_error", routeTemplate(r))

		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{
			Error:   http.StatusText(statusCode),
			Message: "failed to encode response",
			Code:    statusCode,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// sendError sends an error response
func (h *ClimateHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, r, response, statusCode)
}

// RegisterRoutes registers all climate API routes.
// Fixed paths are registered before the {start} patterns so they win the match.
func (h *ClimateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/docs", SwaggerUI).Methods(http.MethodGet)
	router.HandleFunc("/openapi.json", OpenAPISpec).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1.0").Subrouter()
	api.HandleFunc("/precipitation", h.GetPrecipitation).Methods(http.MethodGet)
	api.HandleFunc("/stations", h.GetStations).Methods(http.MethodGet)
	api.HandleFunc("/tobs", h.GetTemperatureObservations).Methods(http.MethodGet)
	api.HandleFunc("/{start}", h.GetTemperatureStats).Methods(http.MethodGet)
	api.HandleFunc("/{start}/{end}", h.GetTemperatureStats).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.metrics.RecordAPIRequest("unmatched", r.Method, strconv.Itoa(http.StatusNotFound))
		h.sendError(w, r, "no route for "+r.URL.Path, http.StatusNotFound)
	})
}

// NewRouter builds the router with request id and metrics middleware
func NewRouter(h *ClimateHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID(h.logger), Metrics(h.metrics))
	h.RegisterRoutes(router)
	return router
}
