package handlers

import (
	"net/http"

	"foodhub-gateway/internal/services"
)

// UploadHandler hands out pre-signed image upload URLs
type UploadHandler struct {
	uploads *services.UploadService
}

// NewUploadHandler creates a new upload handler; a nil service answers every request with 400
func NewUploadHandler(uploads *services.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Presign handles POST /api/v1/uploads
func (h *UploadHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req services.UploadRequest
	if err := decodeJSON(r, &req); err != nil {
		respondAppError(w, r, err)
		return
	}
	resp, err := h.uploads.Presign(r.Context(), callerID(r), req)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, resp)
}
