package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"foodhub-gateway/internal/services"
	"foodhub-gateway/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// DraftHandler handles the draft scratch pad HTTP requests
type DraftHandler struct {
	drafts *services.DraftService
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(drafts *services.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// SaveDraft handles PUT /api/v1/drafts/{key}
func (h *DraftHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	owner, err := draftOwner(r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		respondAppError(w, r, apperrors.NewValidationError("Invalid request body"))
		return
	}
	if err := h.drafts.Save(r.Context(), owner, chi.URLParam(r, "key"), payload); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondNoContent(w, r)
}

// GetDraft handles GET /api/v1/drafts/{key}. The draft is consumed unless peek=true.
func (h *DraftHandler) GetDraft(w http.ResponseWriter, r *http.Request) {
	owner, err := draftOwner(r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	key := chi.URLParam(r, "key")
	var payload json.RawMessage
	if queryBool(r, "peek") {
		payload, err = h.drafts.Peek(r.Context(), owner, key)
	} else {
		payload, err = h.drafts.Consume(r.Context(), owner, key)
	}
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, payload)
}

// DiscardDraft handles DELETE /api/v1/drafts/{key}
func (h *DraftHandler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	owner, err := draftOwner(r)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	if err := h.drafts.Discard(r.Context(), owner, chi.URLParam(r, "key")); err != nil {
		respondAppError(w, r, err)
		return
	}
	respondNoContent(w, r)
}

func draftOwner(r *http.Request) (string, error) {
	return services.Owner(callerID(r), r.Header.Get(HeaderFlowID))
}

// storeForReview keeps a freshly created entity for the review form when ?for_review=true
func storeForReview(r *http.Request, drafts *services.DraftService, key string, v interface{}) {
	if drafts == nil || !queryBool(r, "for_review") {
		return
	}
	owner, err := draftOwner(r)
	if err == nil {
		err = drafts.Store(r.Context(), owner, key, v)
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Str("user_id", callerID(r)).Msg("Failed to keep draft for review")
	}
}
