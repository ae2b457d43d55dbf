package handlers

import (
	"net/http"

	"foodhub-gateway/internal/services"

	"github.com/go-chi/chi/v5"
)

// RestaurantHandler handles restaurant HTTP requests
type RestaurantHandler struct {
	restaurants *services.RestaurantService
	drafts      *services.DraftService
}

// NewRestaurantHandler creates a new restaurant handler
func NewRestaurantHandler(restaurants *services.RestaurantService, drafts *services.DraftService) *RestaurantHandler {
	return &RestaurantHandler{
		restaurants: restaurants,
		drafts:      drafts,
	}
}

// ListRestaurants handles GET /api/v1/restaurants
func (h *RestaurantHandler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	list, err := h.restaurants.List(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, list)
}

// GetRestaurant handles GET /api/v1/restaurants/{id}
func (h *RestaurantHandler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	details, err := h.restaurants.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, details)
}

// CreateRestaurant handles POST /api/v1/restaurants
func (h *RestaurantHandler) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var in services.RestaurantInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	created, err := h.restaurants.Create(r.Context(), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	storeForReview(r, h.drafts, services.DraftCreatedRestaurant, created)
	respondJSON(w, r, http.StatusCreated, created)
}

// UpdateRestaurant handles PUT /api/v1/restaurants/{id}
func (h *RestaurantHandler) UpdateRestaurant(w http.ResponseWriter, r *http.Request) {
	var in services.RestaurantInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	updated, err := h.restaurants.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

// VisitHandler handles the legacy visit HTTP requests
type VisitHandler struct {
	visits *services.VisitService
}

// NewVisitHandler creates a new visit handler
func NewVisitHandler(visits *services.VisitService) *VisitHandler {
	return &VisitHandler{visits: visits}
}

// ListVisits handles GET /api/v1/visits
func (h *VisitHandler) ListVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := h.visits.List(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, visits)
}

// VisitRestaurants handles GET /api/v1/visits/restaurants
func (h *VisitHandler) VisitRestaurants(w http.ResponseWriter, r *http.Request) {
	groups, err := h.visits.RestaurantsFromVisits(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, groups)
}

// CreateVisit handles POST /api/v1/visits
func (h *VisitHandler) CreateVisit(w http.ResponseWriter, r *http.Request) {
	var in services.VisitInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	visit, err := h.visits.Create(r.Context(), callerID(r), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, visit)
}

// DeleteVisit handles DELETE /api/v1/visits/{id}
func (h *VisitHandler) DeleteVisit(w http.ResponseWriter, r *http.Request) {
	if err := h.visits.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondNoContent(w, r)
}
