package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	// Ledger rejections (terminal, never retried)
	ErrAlreadyCompletedToday = errors.New("level already completed today")
	ErrInvalidOutcome        = errors.New("invalid attempt outcome")
	ErrBonusUnavailable      = errors.New("bonus offer unavailable")

	// Redemption rejections (terminal, never retried)
	ErrBelowMinimum       = errors.New("redemption below minimum points")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidWallet      = errors.New("invalid wallet type")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrRedemptionNotFound = errors.New("redemption request not found")

	// Level and session errors
	ErrLevelNotFound     = errors.New("level not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotPlaying = errors.New("session is not in progress")
	ErrAttemptFailed     = errors.New("attempt did not solve the level")
)

// IsRejection reports whether err is a validation rejection rather than a failure
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrAlreadyCompletedToday, ErrInvalidOutcome, ErrBonusUnavailable,
		ErrBelowMinimum, ErrInsufficientPoints, ErrInvalidWallet, ErrInvalidPhone,
		ErrLevelNotFound, ErrAttemptFailed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
