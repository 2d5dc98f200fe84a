package response

import (
	"time"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/services/auth"
)

// Player represents a user aggregate in API responses
type Player struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email,omitempty"`
	TotalPoints       int       `json:"total_points"`
	CompletedMissions int       `json:"completed_missions"`
	Accuracy          float64   `json:"accuracy"`
	FastestTime       int       `json:"fastest_time"`
	LastPlayed        time.Time `json:"last_played"`
	CreatedAt         time.Time `json:"created_at"`
}

// PlayerFromModel converts a model.UserAggregate to a response Player
func PlayerFromModel(u *model.UserAggregate) Player {
	return Player{
		ID:                string(u.ID),
		Username:          u.Username,
		Email:             u.Email,
		TotalPoints:       u.TotalPoints,
		CompletedMissions: u.CompletedMissions,
		Accuracy:          u.Accuracy,
		FastestTime:       u.FastestTime,
		LastPlayed:        u.LastPlayed,
		CreatedAt:         u.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player    `json:"player"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session and its user
func AuthResponseFromSession(s *auth.Session, u *model.UserAggregate) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(u),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// Level represents a catalog entry
type Level struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Points           int    `json:"points"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	CompletedToday   *bool  `json:"completed_today,omitempty"`
}

// LevelFromModel converts a model.Level
func LevelFromModel(l model.Level) Level {
	return Level{
		ID:               int(l.ID),
		Name:             l.Name,
		Description:      l.Description,
		Points:           l.Points,
		TimeLimitSeconds: int(l.TimeLimit / time.Second),
	}
}

// Attempt represents a level session
type Attempt struct {
	Handle               string    `json:"handle"`
	LevelID              int       `json:"level_id"`
	StartTime            time.Time `json:"start_time"`
	TimeRemainingSeconds int       `json:"time_remaining_seconds"`
	State                string    `json:"state"`
}

// AttemptFromModel converts a model.LevelSession
func AttemptFromModel(s *model.LevelSession) Attempt {
	return Attempt{
		Handle:               string(s.Handle),
		LevelID:              int(s.LevelID),
		StartTime:            s.StartTime,
		TimeRemainingSeconds: s.TimeRemainingSeconds,
		State:                string(s.State),
	}
}

// BonusOffer represents a claimable bonus
type BonusOffer struct {
	ID        string    `json:"id"`
	Points    int       `json:"points"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CompletionResult is the response after a winning submission
type CompletionResult struct {
	Player     Player      `json:"player"`
	BonusOffer *BonusOffer `json:"bonus_offer,omitempty"`
}

// CompletionResultFromModel converts the ledger result of a completion
func CompletionResultFromModel(u *model.UserAggregate, offer *model.BonusOffer) CompletionResult {
	result := CompletionResult{Player: PlayerFromModel(u)}
	if offer != nil {
		result.BonusOffer = &BonusOffer{
			ID:        offer.ID,
			Points:    offer.Points,
			ExpiresAt: offer.ExpiresAt,
		}
	}
	return result
}

// Completion represents one history entry
type Completion struct {
	ID               string    `json:"id"`
	LevelID          int       `json:"level_id"`
	PointsEarned     int       `json:"points_earned"`
	TimeTakenSeconds int       `json:"time_taken_seconds"`
	CompletedAt      time.Time `json:"completed_at"`
	CalendarDate     string    `json:"calendar_date"`
}

// CompletionsFromModel converts completion records
func CompletionsFromModel(records []model.CompletionRecord) []Completion {
	result := make([]Completion, len(records))
	for i, c := range records {
		result[i] = Completion{
			ID:               c.ID,
			LevelID:          int(c.LevelID),
			PointsEarned:     c.PointsEarned,
			TimeTakenSeconds: c.TimeTakenSeconds,
			CompletedAt:      c.CompletedAt,
			CalendarDate:     c.CalendarDate,
		}
	}
	return result
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank              int     `json:"rank"`
	UserID            string  `json:"user_id"`
	Username          string  `json:"username"`
	TotalPoints       int     `json:"total_points"`
	CompletedMissions int     `json:"completed_missions"`
	Accuracy          float64 `json:"accuracy"`
	FastestTime       int     `json:"fastest_time"`
}

// Leaderboard is the ranked view
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// LeaderboardFromModel converts an already sorted slice of aggregates
func LeaderboardFromModel(users []*model.UserAggregate, updatedAt time.Time) Leaderboard {
	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Rank:              i + 1,
			UserID:            string(u.ID),
			Username:          u.Username,
			TotalPoints:       u.TotalPoints,
			CompletedMissions: u.CompletedMissions,
			Accuracy:          u.Accuracy,
			FastestTime:       u.FastestTime,
		}
	}
	return Leaderboard{Entries: entries, UpdatedAt: updatedAt}
}

// Redemption represents a payout request
type Redemption struct {
	ID              string    `json:"id"`
	WalletType      string    `json:"wallet_type"`
	PhoneNumber     string    `json:"phone_number"`
	PointsRequested int       `json:"points_requested"`
	CashAmount      float64   `json:"cash_amount"`
	Status          string    `json:"status"`
	RequestedAt     time.Time `json:"requested_at"`
}

// RedemptionFromModel converts a model.RedemptionRequest
func RedemptionFromModel(r *model.RedemptionRequest) Redemption {
	return Redemption{
		ID:              r.ID,
		WalletType:      string(r.WalletType),
		PhoneNumber:     r.PhoneNumber,
		PointsRequested: r.PointsRequested,
		CashAmount:      r.CashAmount,
		Status:          string(r.Status),
		RequestedAt:     r.RequestedAt,
	}
}

// RedemptionsFromModel converts a list of redemption requests
func RedemptionsFromModel(requests []model.RedemptionRequest) []Redemption {
	result := make([]Redemption, len(requests))
	for i := range requests {
		result[i] = RedemptionFromModel(&requests[i])
	}
	return result
}

// Health is the health check response
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}
