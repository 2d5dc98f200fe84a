package model

import "time"

// SessionHandle identifies an in-progress attempt
type SessionHandle string

// SessionState is the state of a level attempt
type SessionState string

const (
	SessionPlaying SessionState = "playing"
	SessionWon     SessionState = "won"  // terminal
	SessionLost    SessionState = "lost" // terminal
)

// IsTerminal returns true once no further transitions are possible
func (s SessionState) IsTerminal() bool {
	return s == SessionWon || s == SessionLost
}

// LevelSession is the transient state of one attempt
type LevelSession struct {
	Handle               SessionHandle
	UserID               UserID
	LevelID              LevelID
	StartTime            time.Time
	TimeRemainingSeconds int
	State                SessionState
	EndedAt              time.Time // zero while playing
}

// Outcome is what a mini-game adjudicator reports for one submission
type Outcome struct {
	Accepted       bool
	PointsEarned   int
	ElapsedSeconds int
}

// Validate rejects outcomes no adjudicator should produce
func (o Outcome) Validate() error {
	if o.PointsEarned < 0 || o.ElapsedSeconds < 0 {
		return ErrInvalidOutcome
	}
	return nil
}
