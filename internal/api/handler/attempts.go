package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/request"
	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/services/session"
)

// AttemptHandler handles level attempts
type AttemptHandler struct {
	sessions session.ManagerInterface
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(sessions session.ManagerInterface) *AttemptHandler {
	return &AttemptHandler{sessions: sessions}
}

// Start handles POST /api/v1/attempts
func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	var req request.StartAttemptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	s, err := h.sessions.StartAttempt(r.Context(), userID, model.LevelID(req.LevelID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AttemptFromModel(s))
}

// Get handles GET /api/v1/attempts/{handle}
func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.owned(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.AttemptFromModel(s))
}

// SubmitOutcome handles POST /api/v1/attempts/{handle}/outcome
func (h *AttemptHandler) SubmitOutcome(w http.ResponseWriter, r *http.Request) {
	s, err := h.owned(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.OutcomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	user, offer, err := h.sessions.SubmitOutcome(r.Context(), s.Handle, model.Outcome{
		Accepted:       req.Accepted,
		PointsEarned:   req.PointsEarned,
		ElapsedSeconds: req.ElapsedSeconds,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CompletionResultFromModel(user, offer))
}

// SubmitInput handles POST /api/v1/attempts/{handle}/input
func (h *AttemptHandler) SubmitInput(w http.ResponseWriter, r *http.Request) {
	s, err := h.owned(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.InputRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	user, offer, err := h.sessions.SubmitInput(r.Context(), s.Handle, req.Input)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CompletionResultFromModel(user, offer))
}

// Cancel handles DELETE /api/v1/attempts/{handle}
func (h *AttemptHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, err := h.owned(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := h.sessions.Cancel(s.Handle); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// owned loads the attempt named in the path; other users' attempts look absent
func (h *AttemptHandler) owned(r *http.Request) (*model.LevelSession, error) {
	userID := middleware.MustGetUserID(r.Context())
	handle := model.SessionHandle(mux.Vars(r)["handle"])

	s, err := h.sessions.Get(handle)
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}
