package handlers

import (
	"net/http"

	"foodhub-gateway/internal/models"
	"foodhub-gateway/internal/services"
)

// CoinHandler handles the coin balance and the paid AI features
type CoinHandler struct {
	ledger *services.LedgerService
	paid   *services.PaidOperations
}

// NewCoinHandler creates a new coin handler
func NewCoinHandler(ledger *services.LedgerService, paid *services.PaidOperations) *CoinHandler {
	return &CoinHandler{
		ledger: ledger,
		paid:   paid,
	}
}

// Balance handles GET /api/v1/coins
func (h *CoinHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := callerID(r)
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.CoinBalance{UserID: userID, Balance: balance})
}

// Recommend handles POST /api/v1/ai/recommendations
func (h *CoinHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var q models.RecommendationQuery
	if err := decodeJSON(r, &q); err != nil {
		respondAppError(w, r, err)
		return
	}
	rec, err := h.paid.Recommend(r.Context(), q)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, rec)
}
