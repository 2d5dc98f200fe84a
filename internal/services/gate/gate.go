// Package gate enforces the once-per-level-per-day reward rule.
//
// Both functions operate on a user aggregate that the caller holds inside an
// atomic store update, so check and reserve are never split across commits.
package gate

import (
	"time"

	"github.com/ghozitech/ledger/internal/model"
)

// Check reports whether a reward for levelID may still be granted on date.
// It does not modify the user.
func Check(user *model.UserAggregate, levelID model.LevelID, date string) error {
	if user.HasReservation(levelID, date) {
		return model.ErrAlreadyCompletedToday
	}
	return nil
}

// TryReserve records the reservation for levelID on date, or rejects a
// duplicate without touching the user.
func TryReserve(user *model.UserAggregate, levelID model.LevelID, date string, now time.Time) error {
	if err := Check(user, levelID, date); err != nil {
		return err
	}
	if user.DailyCompletions == nil {
		user.DailyCompletions = make(map[string]time.Time)
	}
	user.DailyCompletions[model.ReservationKey(levelID, date)] = now
	return nil
}
