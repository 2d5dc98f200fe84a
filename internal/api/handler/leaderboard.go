package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/api/sse"
	"github.com/ghozitech/ledger/internal/model"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// Ranking is the read side of the rank engine
type Ranking interface {
	TopN(n int) []*model.UserAggregate
	BuiltAt() time.Time
}

// LeaderboardHandler serves the ranking and its live stream
type LeaderboardHandler struct {
	ranking    Ranking
	hubManager *sse.HubManager
	logger     *slog.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(ranking Ranking, hubManager *sse.HubManager, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		ranking:    ranking,
		hubManager: hubManager,
		logger:     logger,
	}
}

// Get handles GET /api/v1/leaderboard
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "n", defaultLeaderboardSize, maxLeaderboardSize)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromModel(h.ranking.TopN(n), h.ranking.BuiltAt()))
}

// Events handles GET /api/v1/leaderboard/events (SSE).
// The current top 10 is sent immediately, then again after every rebuild.
func (h *LeaderboardHandler) Events(w http.ResponseWriter, r *http.Request) {
	hub := h.hubManager.GetOrCreateHub(sse.LeaderboardTopic)

	initial, err := sse.LeaderboardMessage(h.ranking.TopN(defaultLeaderboardSize), h.ranking.BuiltAt())
	if err != nil {
		h.logger.Error("failed to encode leaderboard", slog.Any("error", err))
		WriteError(w, err)
		return
	}

	sse.ServeSSE(w, r, hub, uuid.NewString(), initial)
}
