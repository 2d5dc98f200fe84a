package model

import "time"

// CompletionRecord is the immutable history entry for one accepted completion
type CompletionRecord struct {
	ID               string    `json:"id"`
	UserID           UserID    `json:"userId"`
	LevelID          LevelID   `json:"levelId"`
	PointsEarned     int       `json:"pointsEarned"`
	TimeTakenSeconds int       `json:"timeTakenSeconds"`
	CompletedAt      time.Time `json:"completedAt"`
	CalendarDate     string    `json:"calendarDate"`
}

// BonusOffer is a one-shot offer to credit extra points after a completion
type BonusOffer struct {
	ID        string    `json:"id"`
	UserID    UserID    `json:"userId"`
	Points    int       `json:"points"`
	ExpiresAt time.Time `json:"expiresAt"`
}
