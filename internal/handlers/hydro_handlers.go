package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/Pinzun/simula-ameba/internal/services"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// HydroHandler serves the read-only inspection API over the built model
type HydroHandler struct {
	model   *services.ModelService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewHydroHandler creates a new inspection handler
func NewHydroHandler(model *services.ModelService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *HydroHandler {
	return &HydroHandler{
		model:   model,
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

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetMetadata handles GET /api/v1/metadata
func (h *HydroHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.model.Metadata()
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}
	h.sendJSON(w, meta, http.StatusOK)
}

// GetCalendar handles GET /api/v1/calendar
func (h *HydroHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.model.Calendar()
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}
	h.sendJSON(w, cal, http.StatusOK)
}

// GetArcs handles GET /api/v1/graph/arcs?list=
func (h *HydroHandler) GetArcs(w http.ResponseWriter, r *http.Request) {
	arcs, err := h.model.Arcs(r.URL.Query().Get("list"))
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}
	h.sendJSON(w, arcs, http.StatusOK)
}

// GetAggregates handles GET /api/v1/aggregates/{kind}
func (h *HydroHandler) GetAggregates(w http.ResponseWriter, r *http.Request) {
	kind := mux.Vars(r)["kind"]
	name := r.URL.Query().Get("name")

	page := 1
	limit := defaultPageLimit

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			h.sendError(w, r, "invalid page, expected positive integer", http.StatusBadRequest)
			return
		}
		page = p
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 || l > maxPageLimit {
			h.sendError(w, r, "invalid limit, expected integer between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = l
	}

	if page-1 > math.MaxInt/limit {
		h.sendError(w, r, "invalid page, out of range", http.StatusBadRequest)
		return
	}
	offset := (page - 1) * limit
	entries, total, err := h.model.Aggregates(kind, name, limit, offset)
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}

	h.sendJSON(w, PaginatedResponse{
		Data:       entries,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, http.StatusOK)
}

// GetCatalogs handles GET /api/v1/catalogs
func (h *HydroHandler) GetCatalogs(w http.ResponseWriter, r *http.Request) {
	view, err := h.model.Catalogs()
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}
	h.sendJSON(w, view, http.StatusOK)
}

// GetRouting handles GET /api/v1/routing
func (h *HydroHandler) GetRouting(w http.ResponseWriter, r *http.Request) {
	view, err := h.model.Routing()
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}
	h.sendJSON(w, view, http.StatusOK)
}

// GetReport handles GET /api/v1/report
func (h *HydroHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.model.Report()
	if err != nil {
		h.sendModelError(w, r, err)
		return
	}
	h.sendJSON(w, report, http.StatusOK)
}

// Rebuild handles POST /api/v1/rebuild
func (h *HydroHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.model.Rebuild(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_REBUILD_ERROR] Model rebuild failed", logging.Fields{}, err)
		h.metrics.RecordAPIError("rebuild_failed", "/api/v1/rebuild")
		h.sendError(w, r, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.sendJSON(w, report, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *HydroHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"model":     "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if !h.model.Ready() {
		status["model"] = "not_built"
	}
	if err := h.model.HealthCheck(ctx); err != nil {
		status["status"] = "unhealthy"
		status["source"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{
		"status": status["status"],
	})
	h.sendJSON(w, status, code)
}

// Middleware tags each request with an ID and records API metrics per route
func (h *HydroHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(logging.WithRequestID(r.Context(), requestID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
		h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// sendJSON sends a JSON response
func (h *HydroHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendModelError maps model query errors to HTTP status codes
func (h *HydroHandler) sendModelError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrModelNotBuilt):
		h.sendError(w, r, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, services.ErrUnknownSelector):
		h.sendError(w, r, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), "[API_ERROR] Model query failed", logging.Fields{
			"path": r.URL.Path,
		}, err)
		h.metrics.RecordAPIError("internal_error", r.URL.Path)
		h.sendError(w, r, "internal error", http.StatusInternalServerError)
	}
}

// sendError sends an error response
func (h *HydroHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all inspection API routes
func (h *HydroHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.Middleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/metadata", h.GetMetadata).Methods("GET")
	api.HandleFunc("/calendar", h.GetCalendar).Methods("GET")
	api.HandleFunc("/graph/arcs", h.GetArcs).Methods("GET")
	api.HandleFunc("/aggregates/{kind}", h.GetAggregates).Methods("GET")
	api.HandleFunc("/catalogs", h.GetCatalogs).Methods("GET")
	api.HandleFunc("/routing", h.GetRouting).Methods("GET")
	api.HandleFunc("/report", h.GetReport).Methods("GET")
	api.HandleFunc("/rebuild", h.Rebuild).Methods("POST")

	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI("Hydro Model Inspection API", "/api/docs/openapi.json")).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
