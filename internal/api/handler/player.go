package handler

import (
	"net/http"

	"github.com/ghozitech/ledger/internal/api/middleware"
	"github.com/ghozitech/ledger/internal/api/request"
	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/services/auth"
	"github.com/ghozitech/ledger/internal/services/ledger"
	"github.com/ghozitech/ledger/internal/storage"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService *auth.Service
	storage     storage.Storage
	ledger      ledger.ServiceInterface
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service, storage storage.Storage, ledger ledger.ServiceInterface) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
		storage:     storage,
		ledger:      ledger,
	}
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Email == "" {
		WriteError(w, NewInvalidRequestError("email is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.writeSession(w, r, http.StatusCreated, session)
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		WriteError(w, NewInvalidRequestError("email and password are required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.writeSession(w, r, http.StatusOK, session)
}

// Logout handles POST /api/v1/players/logout
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.InvalidateSession(middleware.ExtractToken(r))
	response.NoContent(w)
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	user, err := h.storage.GetUser(r.Context(), userID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerFromModel(user))
}

// History handles GET /api/v1/players/me/completions
func (h *PlayerHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.MustGetUserID(r.Context())

	limit, err := queryInt(r, "limit", defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	records, err := h.ledger.History(r.Context(), userID, limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CompletionsFromModel(records))
}

func (h *PlayerHandler) writeSession(w http.ResponseWriter, r *http.Request, status int, session *auth.Session) {
	user, err := h.storage.GetUser(r.Context(), session.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, status, response.AuthResponseFromSession(session, user))
}
