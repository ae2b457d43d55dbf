package handlers

import (
	"net/http"

	"foodhub-gateway/internal/services"

	"github.com/go-chi/chi/v5"
)

// UserHandler handles profile and follow HTTP requests
type UserHandler struct {
	profiles *services.ProfileService
}

// NewUserHandler creates a new user handler
func NewUserHandler(profiles *services.ProfileService) *UserHandler {
	return &UserHandler{profiles: profiles}
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, h.profiles.ListUsers(r.Context()))
}

// GetProfile handles GET /api/v1/users/{id}; "me" is the caller
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "me" {
		id = callerID(r)
		if id == "" {
			respondError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
	}
	profile, err := h.profiles.Profile(r.Context(), id)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, profile)
}

// UpdateMe handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var update services.ProfileUpdate
	if err := decodeJSON(r, &update); err != nil {
		respondAppError(w, r, err)
		return
	}
	user, err := h.profiles.UpdateProfile(r.Context(), callerID(r), update)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

// Follow handles POST /api/v1/users/{id}/follow
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	result, err := h.profiles.ToggleFollow(r.Context(), chi.URLParam(r, "id"))
	if err != nil && result != nil {
		respondSettledError(w, r, err, result)
		return
	}
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}

// SyncCriticScore handles POST /api/v1/users/{id}/critic-score
func (h *UserHandler) SyncCriticScore(w http.ResponseWriter, r *http.Request) {
	score, written, err := h.profiles.SyncCriticScore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"score":   score,
		"updated": written,
	})
}
