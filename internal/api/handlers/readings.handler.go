package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"noisedash/internal/api/logics"
	"noisedash/internal/api/models"
	"noisedash/internal/utils"
)

// ReadingsHandler serves the noise-reading endpoints against an injected
// ReadingService
type ReadingsHandler struct {
	svc *logics.ReadingService
}

// NewReadingsHandler binds the handlers to a service
func NewReadingsHandler(svc *logics.ReadingService) *ReadingsHandler {
	return &ReadingsHandler{svc: svc}
}

// Recent handles GET /api/v1/readings?limit=N
func (h *ReadingsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 1000
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, utils.NewValidationError("INVALID_LIMIT", "limit must be a positive integer", utils.ErrValidationFailed))
			return
		}
		limit = parsed
	}

	readings, err := h.svc.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, readings)
}

// Latest handles GET /api/v1/readings/latest?since=TS for polling clients
func (h *ReadingsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	readings, err := h.svc.Since(r.Context(), r.URL.Query().Get("since"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, readings)
}

// Historical handles GET /api/v1/readings/historical
func (h *ReadingsHandler) Historical(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := models.AggregationRequest{
		Range:     query.Get("range"),
		Breakdown: query.Get("breakdown"),
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
		Date:      query.Get("date"),
		DeviceID:  query.Get("deviceId"),
	}

	points, err := h.svc.Historical(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, points)
}

// Ingest handles POST /api/v1/readings
func (h *ReadingsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, utils.NewValidationError("INVALID_BODY", "invalid JSON body", err))
		return
	}

	id, err := h.svc.Ingest(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusCreated, map[string]any{"id": id})
}

// Devices handles GET /api/v1/devices
func (h *ReadingsHandler) Devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.Devices(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, devices)
}

// Health handles GET /api/v1/health
func (h *ReadingsHandler) Health(w http.ResponseWriter, r *http.Request) {
	setHeader(w, http.StatusOK, `{"status":"ok"}`)
}

// Status handles GET /api/v1/status
func (h *ReadingsHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, logics.CollectServerStatus(r.Context(), h.svc))
}
