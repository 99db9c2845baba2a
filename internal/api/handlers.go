// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MereWhiplash/doctor-finder/internal/apitypes"
	"github.com/MereWhiplash/doctor-finder/internal/service"
	"github.com/MereWhiplash/doctor-finder/internal/types"
)

// Handlers holds HTTP handler dependencies
type Handlers struct {
	svc     *service.Service
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandlers creates new API handlers.
// metrics may be nil; logger defaults to slog.Default().
func NewHandlers(svc *service.Service, metrics *Metrics, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	metrics.SetDoctors(svc.Size())
	return &Handlers{svc: svc, metrics: metrics, logger: logger}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorBody(msg string) apitypes.ErrorResponse {
	return apitypes.ErrorResponse{Error: msg}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorBody(msg))
}

// decodeBody reports a 413 for oversized bodies and a 400 for anything else
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apitypes.HealthResponse{Status: "ok", Doctors: h.svc.Size()})
}

// Recommend handles POST /v1/recommendations
func (h *Handlers) Recommend(w http.ResponseWriter, r *http.Request) {
	var req apitypes.RecommendRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()

	recs, err := h.svc.Recommend(ctx, req.Query, req.TopN)
	if errors.Is(err, types.ErrEmptyQuery) {
		h.metrics.ObserveRecommendation("empty_query", 0, false)
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if err != nil {
		h.metrics.ObserveRecommendation("error", 0, false)
		h.logger.ErrorContext(ctx, "recommendation failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.metrics.ObserveRecommendation("ok", topScore(recs), len(recs) > 0)
	respondJSON(w, http.StatusOK, apitypes.RecommendResponse{Recommendations: recs})
}

// Doctors handles GET /v1/doctors?specialty=
func (h *Handlers) Doctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.svc.Doctors(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, apitypes.DoctorsResponse{Doctors: doctors, Count: len(doctors)})
}

// Specialties handles GET /v1/specialties
func (h *Handlers) Specialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := h.svc.Specialties(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, apitypes.SpecialtiesResponse{Specialties: specialties})
}

func topScore(recs []types.Recommendation) float64 {
	if len(recs) == 0 {
		return 0
	}
	return recs[0].Score
}
