package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/request"
	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/services/redemption"
)

// RedemptionHandler handles payout requests
type RedemptionHandler struct {
	redemptions redemption.ServiceInterface
}

// NewRedemptionHandler creates a new redemption handler
func NewRedemptionHandler(redemptions redemption.ServiceInterface) *RedemptionHandler {
	return &RedemptionHandler{redemptions: redemptions}
}

// Create handles POST /api/v1/redemptions
func (h *RedemptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.RedemptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rr, err := h.redemptions.RequestRedemption(r.Context(), userID, req.Points, model.WalletType(req.WalletType), req.PhoneNumber)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.RedemptionFromModel(rr))
}

// List handles GET /api/v1/redemptions
func (h *RedemptionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	requests, err := h.redemptions.List(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RedemptionsFromModel(requests))
}

// Get handles GET /api/v1/redemptions/{id}
func (h *RedemptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	rr, err := h.redemptions.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RedemptionFromModel(rr))
}
