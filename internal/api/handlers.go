// Package api exposes HTTP and WebSocket handlers for the SmartFit service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"example.com/smartfit/internal/aggregate"
	"example.com/smartfit/internal/auth"
	"example.com/smartfit/internal/domain"
	"example.com/smartfit/internal/preferences"
	"example.com/smartfit/internal/sensor"
	"example.com/smartfit/internal/suggestions"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// SensorRecorder accepts cumulative step-sensor readings.
type SensorRecorder interface {
	Record(sinceBoot int64) (int, error)
}

// Dependencies groups everything the handlers call into.
type Dependencies struct {
	Records     *domain.Service
	Aggregator  *aggregate.Aggregator
	Suggestions *suggestions.Service
	Preferences *preferences.Store
	Sensor      SensorRecorder
	// Ping reports store health; nil means always healthy.
	Ping   func(context.Context) error
	Logger logrus.FieldLogger
}

// Handler coordinates HTTP requests with the domain services.
type Handler struct {
	records     *domain.Service
	aggregator  *aggregate.Aggregator
	suggestions *suggestions.Service
	prefs       *preferences.Store
	sensor      SensorRecorder
	ping        func(context.Context) error
	logger      logrus.FieldLogger
}

// NewHandler builds a Handler.
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		records:     deps.Records,
		aggregator:  deps.Aggregator,
		suggestions: deps.Suggestions,
		prefs:       deps.Preferences,
		sensor:      deps.Sensor,
		ping:        deps.Ping,
		logger:      logger,
	}
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	read := func(path string, fn http.HandlerFunc, methods ...string) {
		v1.Handle(path, auth.RequireScope(auth.ScopeRecordsRead, fn)).Methods(methods...)
	}
	write := func(path string, fn http.HandlerFunc, methods ...string) {
		v1.Handle(path, auth.RequireScope(auth.ScopeRecordsWrite, fn)).Methods(methods...)
	}

	read("/activities", h.listActivities, http.MethodGet)
	write("/activities", h.createActivity, http.MethodPost)
	read("/activities/{id:[0-9]+}", h.getActivity, http.MethodGet)
	write("/activities/{id:[0-9]+}", h.updateActivity, http.MethodPut)
	write("/activities/{id:[0-9]+}", h.deleteActivity, http.MethodDelete)

	read("/meals", h.listMeals, http.MethodGet)
	write("/meals", h.createMeal, http.MethodPost)
	read("/meals/{id:[0-9]+}", h.getMeal, http.MethodGet)
	write("/meals/{id:[0-9]+}", h.updateMeal, http.MethodPut)
	write("/meals/{id:[0-9]+}", h.deleteMeal, http.MethodDelete)
	read("/foods", h.listFoods, http.MethodGet)

	read("/steps", h.listSteps, http.MethodGet)
	write("/steps", h.createSteps, http.MethodPost)
	write("/steps/sensor", h.recordSensor, http.MethodPost)

	read("/summary", h.summary, http.MethodGet)
	read("/summary/stream", h.summaryStream, http.MethodGet)

	read("/suggestions", h.listSuggestions, http.MethodGet)
	read("/suggestions/{id}", h.getSuggestion, http.MethodGet)

	read("/preferences", h.getPreferences, http.MethodGet)
	v1.Handle("/preferences", auth.RequireScope(auth.ScopePreferencesWrite, http.HandlerFunc(h.patchPreferences))).Methods(http.MethodPatch)

	// Subrouters do not inherit these from the parent.
	for _, router := range []*mux.Router{r, v1} {
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
		router.NotFoundHandler = http.HandlerFunc(routeNotFound)
	}
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "no such route")
}

// healthz reports OK when the store answers.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.WithError(err).Warn("health check failed")
			writeError(w, http.StatusServiceUnavailable, "unavailable", "store unreachable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// writeServiceError maps domain errors onto HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "validation_failed", verr.Error())
	case errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrMealNotFound),
		errors.Is(err, domain.ErrStepCountNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, sensor.ErrTrackingDisabled):
		writeError(w, http.StatusConflict, "tracking_disabled", err.Error())
	case errors.Is(err, domain.ErrSaveFailed):
		writeError(w, http.StatusInternalServerError, "save_failed", "failed to save")
	default:
		h.logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid id")
		return 0, false
	}
	return id, true
}

func pageLimit(r *http.Request) int {
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit
}

// listWindow resolves ?period= or ?from=&to= (RFC 3339) into a window.
// Without either the whole history is listed.
func (h *Handler) listWindow(r *http.Request) (domain.Window, error) {
	q := r.URL.Query()
	if raw := q.Get("period"); raw != "" {
		period, ok := domain.ParsePeriod(raw)
		if !ok {
			return domain.Window{}, &domain.ValidationError{Field: "period", Message: "must be today or this_week"}
		}
		return domain.WindowFor(period, h.records.Now()), nil
	}

	window := domain.Window{Start: time.Unix(0, 0), End: domain.Unbounded}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.Window{}, &domain.ValidationError{Field: "from", Message: "must be an RFC 3339 timestamp"}
		}
		window.Start = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.Window{}, &domain.ValidationError{Field: "to", Message: "must be an RFC 3339 timestamp"}
		}
		window.End = t
	}
	if !window.End.After(window.Start) {
		return domain.Window{}, &domain.ValidationError{Field: "to", Message: "must be after from"}
	}
	return window, nil
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
