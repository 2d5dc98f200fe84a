package model

import (
	"fmt"
	"time"
)

// UserID is the opaque identifier supplied by the identity provider
type UserID string

// CalendarDateLayout is the layout of a calendar date ("today")
const CalendarDateLayout = "2006-01-02"

// UserAggregate is the durable per-user record of points, stats and reservations
type UserAggregate struct {
	ID                UserID               `json:"userId"`
	Username          string               `json:"username"`
	Email             string               `json:"email,omitempty"`
	TotalPoints       int                  `json:"totalPoints"`
	CompletedMissions int                  `json:"completedMissions"`
	Accuracy          float64              `json:"accuracy"`
	FastestTime       int                  `json:"fastestTime"` // seconds, 0 means unset
	DailyCompletions  map[string]time.Time `json:"dailyCompletions,omitempty"`
	LastPlayed        time.Time            `json:"lastPlayed"`
	CreatedAt         time.Time            `json:"createdAt"`
}

// NewUserAggregate returns a zeroed aggregate for a freshly registered user
func NewUserAggregate(id UserID, username, email string, now time.Time) *UserAggregate {
	return &UserAggregate{
		ID:               id,
		Username:         username,
		Email:            email,
		DailyCompletions: make(map[string]time.Time),
		LastPlayed:       now,
		CreatedAt:        now,
	}
}

// Clone returns a deep copy so callers can mutate without touching stored state
func (u *UserAggregate) Clone() *UserAggregate {
	if u == nil {
		return nil
	}
	c := *u
	c.DailyCompletions = make(map[string]time.Time, len(u.DailyCompletions))
	for k, v := range u.DailyCompletions {
		c.DailyCompletions[k] = v
	}
	return &c
}

// HasReservation reports whether a reward was already granted for the level on the date
func (u *UserAggregate) HasReservation(levelID LevelID, date string) bool {
	_, ok := u.DailyCompletions[ReservationKey(levelID, date)]
	return ok
}

// ReservationKey builds the dailyCompletions key for a level on a calendar date
func ReservationKey(levelID LevelID, date string) string {
	return fmt.Sprintf("level_%d_completed_%s", levelID, date)
}

// CalendarDate returns the UTC calendar date of t
func CalendarDate(t time.Time) string {
	return t.UTC().Format(CalendarDateLayout)
}

// Credentials holds login data for a user.
// Stored separately from the aggregate so the hash never travels with game state.
type Credentials struct {
	UserID       UserID    `json:"userId"`
	Email        string    `json:"email"` // login handle (immutable)
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
