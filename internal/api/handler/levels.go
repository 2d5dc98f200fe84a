package handler

import (
	"net/http"

	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
)

// LevelHandler serves the level catalog
type LevelHandler struct {
	storage storage.Storage
	clock   clock.Clock
}

// NewLevelHandler creates a new level handler
func NewLevelHandler(storage storage.Storage, clock clock.Clock) *LevelHandler {
	return &LevelHandler{storage: storage, clock: clock}
}

// List handles GET /api/v1/levels.
// Signed-in callers also see whether each level is already completed today.
func (h *LevelHandler) List(w http.ResponseWriter, r *http.Request) {
	levels := model.Levels()
	result := make([]response.Level, len(levels))
	for i, l := range levels {
		result[i] = response.LevelFromModel(l)
	}

	if session := middleware.GetSession(r.Context()); session != nil {
		user, err := h.storage.GetUser(r.Context(), session.UserID)
		if err != nil {
			WriteError(w, err)
			return
		}
		today := model.CalendarDate(h.clock.Now())
		for i, l := range levels {
			done := user.HasReservation(l.ID, today)
			result[i].CompletedToday = &done
		}
	}

	response.JSON(w, http.StatusOK, result)
}
