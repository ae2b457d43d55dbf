package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"foodhub-gateway/internal/clients"
	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

const maxImageBytes = 10 << 20

// FoodHandler handles food HTTP requests
type FoodHandler struct {
	foods  *services.FoodService
	paid   *services.PaidOperations
	drafts *services.DraftService
}

// NewFoodHandler creates a new food handler
func NewFoodHandler(foods *services.FoodService, paid *services.PaidOperations, drafts *services.DraftService) *FoodHandler {
	return &FoodHandler{
		foods:  foods,
		paid:   paid,
		drafts: drafts,
	}
}

// ListFoods handles GET /api/v1/foods; mine=true limits the list to the caller's foods
func (h *FoodHandler) ListFoods(w http.ResponseWriter, r *http.Request) {
	var (
		foods []*models.Food
		err   error
	)
	if queryBool(r, "mine") && callerID(r) != "" {
		foods, err = h.foods.ListByUser(r.Context(), callerID(r))
	} else {
		foods, err = h.foods.List(r.Context())
	}
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, foods)
}

// GetFood handles GET /api/v1/foods/{id}
func (h *FoodHandler) GetFood(w http.ResponseWriter, r *http.Request) {
	food, err := h.foods.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, food)
}

// CreateFood handles POST /api/v1/foods as JSON or as multipart with an optional image
func (h *FoodHandler) CreateFood(w http.ResponseWriter, r *http.Request) {
	food, image, err := readFood(w, r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	created, err := h.foods.Create(r.Context(), callerID(r), food, image)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	storeForReview(r, h.drafts, services.DraftCreatedFood, created)
	respondJSON(w, r, http.StatusCreated, created)
}

// UpdateFood handles PUT /api/v1/foods/{id}
func (h *FoodHandler) UpdateFood(w http.ResponseWriter, r *http.Request) {
	food, image, err := readFood(w, r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	updated, err := h.foods.Update(r.Context(), callerID(r), chi.URLParam(r, "id"), food, image)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

// DeleteFood handles DELETE /api/v1/foods/{id}
func (h *FoodHandler) DeleteFood(w http.ResponseWriter, r *http.Request) {
	if err := h.foods.Delete(r.Context(), callerID(r), chi.URLParam(r, "id")); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondNoContent(w, r)
}

// GenerateNutrition handles POST /api/v1/foods/{id}/nutrition, a paid operation
func (h *FoodHandler) GenerateNutrition(w http.ResponseWriter, r *http.Request) {
	food, err := h.paid.GenerateNutrition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, food)
}

// readFood accepts a JSON body or a multipart form with a "food" JSON part and an "image" file.
// Images over maxImageBytes are rejected rather than truncated.
func readFood(w http.ResponseWriter, r *http.Request) (*models.Food, *clients.Image, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var food models.Food
		if err := decodeJSON(r, &food); err != nil {
			return nil, nil, err
		}
		return &food, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, apperrors.NewTooLargeError("Image exceeds 10 MB")
		}
		return nil, nil, apperrors.NewValidationError("Invalid multipart form")
	}

	var raw []byte
	if values := r.MultipartForm.Value["food"]; len(values) > 0 {
		raw = []byte(values[0])
	} else if file, _, err := r.FormFile("food"); err == nil {
		defer file.Close()
		raw, _ = io.ReadAll(io.LimitReader(file, maxBodyBytes))
	}
	var food models.Food
	if err := json.Unmarshal(raw, &food); err != nil {
		return nil, nil, apperrors.NewValidationError("food part must be valid JSON")
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return &food, nil, nil
	}
	if err != nil {
		return nil, nil, apperrors.NewValidationError("Invalid image")
	}
	defer file.Close()
	if header.Size > maxImageBytes {
		return nil, nil, apperrors.NewTooLargeError("Image exceeds 10 MB")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, nil, apperrors.NewValidationError("Invalid image")
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = http.DetectContentType(data)
	}
	return &food, &clients.Image{Filename: header.Filename, ContentType: contentType, Data: data}, nil
}
