package handlers

import (
	"net/http"

	"foodhub-gateway/internal/services"

	"github.com/go-chi/chi/v5"
)

// HangoutHandler handles hangout HTTP requests
type HangoutHandler struct {
	hangouts *services.HangoutService
}

// NewHangoutHandler creates a new hangout handler
func NewHangoutHandler(hangouts *services.HangoutService) *HangoutHandler {
	return &HangoutHandler{hangouts: hangouts}
}

// ListHangouts handles GET /api/v1/hangouts
func (h *HangoutHandler) ListHangouts(w http.ResponseWriter, r *http.Request) {
	views, err := h.hangouts.ListForUser(r.Context(), callerID(r))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, views)
}

// CreateHangout handles POST /api/v1/hangouts
func (h *HangoutHandler) CreateHangout(w http.ResponseWriter, r *http.Request) {
	var in services.HangoutInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	view, err := h.hangouts.Create(r.Context(), callerID(r), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, view)
}

type respondRequest struct {
	Accept bool `json:"accept"`
}

// RespondHangout handles POST /api/v1/hangouts/{id}/respond
func (h *HangoutHandler) RespondHangout(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	view, err := h.hangouts.Respond(r.Context(), callerID(r), chi.URLParam(r, "id"), req.Accept)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, view)
}
