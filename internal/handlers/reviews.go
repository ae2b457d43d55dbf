package handlers

import (
	"net/http"

	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

// SettledErrorResponse carries the restored state of a rolled back toggle
type SettledErrorResponse struct {
	Error  string      `json:"error"`
	Result interface{} `json:"result"`
}

// ReviewHandler handles the feed and review HTTP requests
type ReviewHandler struct {
	feed    *services.FeedService
	reviews *services.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(feed *services.FeedService, reviews *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		feed:    feed,
		reviews: reviews,
	}
}

// Feed handles GET /api/v1/feed
func (h *ReviewHandler) Feed(w http.ResponseWriter, r *http.Request) {
	q := services.FeedQuery{
		Query: r.URL.Query().Get("q"),
		Sort:  r.URL.Query().Get("sort"),
		Limit: queryInt(r, "limit", 0),
	}
	posts, err := h.feed.Feed(r.Context(), q)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{
		"posts": posts,
		"total": len(posts),
	})
}

// GetReview handles GET /api/v1/reviews/{id}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	post, err := h.feed.ReviewDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, post)
}

// CreateReview handles POST /api/v1/reviews
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var in services.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	review, err := h.reviews.Create(r.Context(), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, review)
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	var in services.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		respondAppError(w, r, err)
		return
	}
	review, err := h.reviews.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.reviews.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondNoContent(w, r)
}

// Like handles POST /api/v1/reviews/{id}/like
func (h *ReviewHandler) Like(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviews.ToggleLike(r.Context(), chi.URLParam(r, "id"))
	respondReaction(w, r, result, err)
}

// Dislike handles POST /api/v1/reviews/{id}/dislike
func (h *ReviewHandler) Dislike(w http.ResponseWriter, r *http.Request) {
	result, err := h.reviews.ToggleDislike(r.Context(), chi.URLParam(r, "id"))
	respondReaction(w, r, result, err)
}

func respondReaction(w http.ResponseWriter, r *http.Request, result *services.ReactionResult, err error) {
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

// respondSettledError reports a rolled back toggle together with the state to display
func respondSettledError(w http.ResponseWriter, r *http.Request, err error, result interface{}) {
	respondJSON(w, r, apperrors.HTTPStatus(err), SettledErrorResponse{
		Error:  apperrors.Message(err),
		Result: result,
	})
}

type commentRequest struct {
	Text string `json:"text"`
}

// AddComment handles POST /api/v1/reviews/{id}/comments
func (h *ReviewHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	comment, err := h.reviews.AddComment(r.Context(), chi.URLParam(r, "id"), req.Text)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, comment)
}
