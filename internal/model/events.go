package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventCompletionApplied  EventType = "completion_applied"
	EventBonusCredited      EventType = "bonus_credited"
	EventRedemptionRecorded EventType = "redemption_recorded"
	EventUserCreated        EventType = "user_created"
)

// Event is published after an aggregate change has been committed
type Event struct {
	Type        EventType
	Timestamp   time.Time
	UserID      UserID
	TotalPoints int // balance after the change
}
