package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/services/ledger"
)

// BonusHandler handles bonus offer claims
type BonusHandler struct {
	ledger ledger.ServiceInterface
}

// NewBonusHandler creates a new bonus handler
func NewBonusHandler(ledger ledger.ServiceInterface) *BonusHandler {
	return &BonusHandler{ledger: ledger}
}

// Claim handles POST /api/v1/bonus/{offer_id}/claim
func (h *BonusHandler) Claim(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())
	offerID := mux.Vars(r)["offer_id"]

	user, err := h.ledger.ClaimBonus(r.Context(), userID, offerID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(user))
}
