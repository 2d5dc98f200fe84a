package sse

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ghozitech/ledger/internal/api/response"
	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/model"
)

// LeaderboardTopic is the hub topic for live ranking updates
const LeaderboardTopic = "leaderboard"

// EventLeaderboard is the SSE event name carrying the top of the ranking
const EventLeaderboard = "leaderboard"

// Broadcaster pushes rank engine rebuilds to SSE clients
type Broadcaster struct {
	hubManager *HubManager
	clock      clock.Clock
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, clock clock.Clock, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		clock:      clock,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// PushLeaderboard broadcasts the ranked entries to leaderboard subscribers
func (b *Broadcaster) PushLeaderboard(entries []*model.UserAggregate) {
	hub := b.hubManager.GetHub(LeaderboardTopic)
	if hub == nil {
		return
	}

	msg, err := LeaderboardMessage(entries, b.clock.Now())
	if err != nil {
		b.logger.Error("sse failed to encode leaderboard", slog.Any("error", err))
		return
	}
	hub.Broadcast(msg)
}

// LeaderboardMessage encodes a leaderboard SSE event
func LeaderboardMessage(entries []*model.UserAggregate, updatedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(response.LeaderboardFromModel(entries, updatedAt))
	if err != nil {
		return nil, err
	}
	return FormatEvent(EventLeaderboard, string(data)), nil
}
