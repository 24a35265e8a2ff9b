package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/factor"
	"github.com/wonny/factorlab/internal/lab"
	"github.com/wonny/factorlab/pkg/logger"
	"github.com/wonny/factorlab/pkg/redis"
)

// cacheTTL bounds staleness of cached engine reads.
const cacheTTL = 5 * time.Minute

// LabHandler serves definition and engine endpoints.
type LabHandler struct {
	service *lab.Service
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewLabHandler creates a new lab handler.
func NewLabHandler(service *lab.Service, cache *redis.Cache, log *logger.Logger) *LabHandler {
	return &LabHandler{
		service: service,
		cache:   cache,
		logger:  log.Component("api"),
	}
}

// ListDefinitions returns all stored definitions.
// GET /api/definitions
func (h *LabHandler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.service.Definitions(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list definitions")
		respondError(w, http.StatusInternalServerError, "failed to list definitions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"definitions": defs})
}

// GetDefinition returns one definition.
// GET /api/definitions/{name}
func (h *LabHandler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	def, err := h.service.Definition(r.Context(), name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, def)
}

// SaveDefinition stores a definition posted as JSON.
// POST /api/definitions
func (h *LabHandler) SaveDefinition(w http.ResponseWriter, r *http.Request) {
	var def factor.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondError(w, http.StatusBadRequest, "invalid definition body")
		return
	}
	if def.SchemaVersion == 0 {
		def.SchemaVersion = factor.SchemaVersion
	}
	if err := def.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SaveDefinition(r.Context(), def); err != nil {
		h.logger.WithError(err).Error("Failed to save definition")
		respondError(w, http.StatusInternalServerError, "failed to save definition")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"name": def.Name})
}

// DeleteDefinition removes a definition.
// DELETE /api/definitions/{name}
func (h *LabHandler) DeleteDefinition(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.service.DeleteDefinition(r.Context(), name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// scoredJSON is one cross-section row. Undefined scores carry a null value.
type scoredJSON struct {
	Security string   `json:"security"`
	Value    *float64 `json:"value"`
}

// crossResponse is the GetCross payload.
type crossResponse struct {
	Definition string       `json:"definition"`
	Date       time.Time    `json:"date"`
	Ranked     []scoredJSON `json:"ranked"`
}

// GetCross returns the ranked cross section for a date (default: latest).
// GET /api/definitions/{name}/cross?date=2026-01-15
func (h *LabHandler) GetCross(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]
	dateParam := r.URL.Query().Get("date")

	cacheKey := fmt.Sprintf("cross:%s:%s", name, dateParam)
	var cached crossResponse
	if hit, _ := h.cache.Get(ctx, cacheKey, &cached); hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	eng, err := h.service.Engine(ctx, name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var date time.Time
	if dateParam == "" {
		dates, err := eng.Dates(ctx)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		if len(dates) == 0 {
			respondError(w, http.StatusNotFound, "definition has an empty calendar")
			return
		}
		date = dates[len(dates)-1]
	} else {
		date, err = time.Parse("2006-01-02", dateParam)
		if err != nil {
			respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	cross, err := eng.Cross(ctx, date)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	resp := crossResponse{
		Definition: name,
		Date:       contracts.Day(date),
		Ranked:     make([]scoredJSON, len(cross)),
	}
	for i, sc := range cross {
		resp.Ranked[i] = scoredJSON{Security: sc.Security.String(), Value: nullableFloat(sc.Value)}
	}

	h.cache.Set(ctx, cacheKey, resp, cacheTTL)
	respondJSON(w, http.StatusOK, resp)
}

// seriesResponse is a dated series payload. Undefined points are null.
type seriesResponse struct {
	Definition string      `json:"definition"`
	Dates      []time.Time `json:"dates"`
	Values     []*float64  `json:"values"`
}

// GetIC returns the information coefficient series.
// GET /api/definitions/{name}/ic?ndays=1 (0 or absent uses the configured horizon)
func (h *LabHandler) GetIC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	ndays, err := intParam(r, "ndays", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("ic:%s:%d", name, ndays)
	var cached seriesResponse
	if hit, _ := h.cache.Get(ctx, cacheKey, &cached); hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	eng, err := h.service.Engine(ctx, name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	ic, err := eng.IC(ctx, ndays)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	dates, err := eng.Dates(ctx)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	resp := newSeriesResponse(name, dates, ic)
	h.cache.Set(ctx, cacheKey, resp, cacheTTL)
	respondJSON(w, http.StatusOK, resp)
}

// GetICIR returns the IC information ratio series.
// GET /api/definitions/{name}/icir?ir_n=10&ic_n=1
func (h *LabHandler) GetICIR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	irN, err := intParam(r, "ir_n", 10)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	icN, err := intParam(r, "ic_n", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := fmt.Sprintf("icir:%s:%d:%d", name, irN, icN)
	var cached seriesResponse
	if hit, _ := h.cache.Get(ctx, cacheKey, &cached); hit {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	eng, err := h.service.Engine(ctx, name)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	icir, err := eng.ICIR(ctx, irN, icN)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	dates, err := eng.Dates(ctx)
	if err != nil {
		respondEngineError(w, err)
		return
	}

	resp := newSeriesResponse(name, dates, icir)
	h.cache.Set(ctx, cacheKey, resp, cacheTTL)
	respondJSON(w, http.StatusOK, resp)
}

// GetSummary returns a compact evaluation of one definition.
// GET /api/definitions/{name}/summary?top=10
func (h *LabHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	topN, err := intParam(r, "top", 10)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.Evaluate(ctx, name, topN)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// newSeriesResponse pairs engine dates with series values.
func newSeriesResponse(name string, dates []time.Time, s factor.Series) seriesResponse {
	resp := seriesResponse{
		Definition: name,
		Dates:      dates,
		Values:     make([]*float64, len(s)),
	}
	for i, v := range s {
		resp.Values[i] = nullableFloat(v)
	}
	return resp
}

// nullableFloat maps NaN to JSON null.
func nullableFloat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// intParam parses an optional integer query parameter.
func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// respondEngineError maps engine errors to HTTP statuses. Configuration
// failures are permanent, so they read as 422 rather than 500.
func respondEngineError(w http.ResponseWriter, err error) {
	var shapeErr *factor.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, factor.ErrSecurityNotFound), errors.Is(err, factor.ErrDateNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
