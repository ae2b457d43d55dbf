package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"foodhub-gateway/internal/middleware"
	"foodhub-gateway/internal/session"
	"foodhub-gateway/pkg/apperrors"

	"github.com/rs/zerolog/log"
)

// Response headers describing the caller's session
const (
	HeaderAccessToken   = "X-Access-Token"
	HeaderRefreshToken  = middleware.RefreshTokenHeader
	HeaderSessionLogout = "X-Session-Logout"
	HeaderFlowID        = "X-Flow-ID"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// respondJSON sends v with the session headers of the request
func respondJSON(w http.ResponseWriter, r *http.Request, statusCode int, v interface{}) {
	writeSessionHeaders(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to encode response")
	}
}

// respondNoContent answers 204 with the session headers of the request
func respondNoContent(w http.ResponseWriter, r *http.Request) {
	writeSessionHeaders(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// respondAppError maps err to its status code and logs server-side failures
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrSessionExpired) {
		w.Header().Set(HeaderSessionLogout, "true")
		respondError(w, "Session expired", http.StatusUnauthorized)
		return
	}
	writeSessionHeaders(w, r)

	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	}
	respondError(w, apperrors.Message(err), status)
}

// writeSessionHeaders hands refreshed tokens back to the caller, or tells it to log out
func writeSessionHeaders(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if s == nil {
		return
	}
	if s.LoggedOut() {
		w.Header().Set(HeaderSessionLogout, "true")
		return
	}
	if access, refresh, ok := s.Refreshed(); ok {
		w.Header().Set(HeaderAccessToken, access)
		w.Header().Set(HeaderRefreshToken, refresh)
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apperrors.NewValidationError("Invalid request body")
	}
	return nil
}

// callerID returns the authenticated user; routes requiring it sit behind RequireAuth
func callerID(r *http.Request) string {
	return session.UserID(r.Context())
}

func queryInt(r *http.Request, name string, fallback int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
