package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeRateLimited           = "RATE_LIMITED"
	CodeTimeout               = "TIMEOUT"
	CodeUserNotFound          = "USER_NOT_FOUND"
	CodeLevelNotFound         = "LEVEL_NOT_FOUND"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionNotPlaying     = "SESSION_NOT_PLAYING"
	CodeAttemptFailed         = "ATTEMPT_FAILED"
	CodeInvalidOutcome        = "INVALID_OUTCOME"
	CodeAlreadyCompletedToday = "ALREADY_COMPLETED_TODAY"
	CodeBonusUnavailable      = "BONUS_UNAVAILABLE"
	CodeBelowMinimum          = "BELOW_MINIMUM"
	CodeInsufficientPoints    = "INSUFFICIENT_POINTS"
	CodeInvalidWallet         = "INVALID_WALLET"
	CodeInvalidPhone          = "INVALID_PHONE"
	CodeRedemptionNotFound    = "REDEMPTION_NOT_FOUND"
	CodeEmailExists           = "EMAIL_EXISTS"
	CodeInvalidEmail          = "INVALID_EMAIL"
	CodeWeakPassword          = "WEAK_PASSWORD"
	CodeInvalidCredentials    = "INVALID_CREDENTIALS"
	CodeInternalError         = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Lookups
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrLevelNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeLevelNotFound, "Level not found"}}
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeSessionNotFound, "Attempt not found"}}
	case errors.Is(err, model.ErrRedemptionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRedemptionNotFound, "Redemption request not found"}}

	// Attempt rejections
	case errors.Is(err, model.ErrSessionNotPlaying):
		return &httpError{http.StatusConflict, APIError{CodeSessionNotPlaying, "Attempt is no longer in progress"}}
	case errors.Is(err, model.ErrAttemptFailed):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeAttemptFailed, "Wrong answer, try again"}}
	case errors.Is(err, model.ErrInvalidOutcome):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidOutcome, "Invalid attempt outcome"}}

	// Ledger rejections
	case errors.Is(err, model.ErrAlreadyCompletedToday):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyCompletedToday, "Level already completed today"}}
	case errors.Is(err, model.ErrBonusUnavailable):
		return &httpError{http.StatusGone, APIError{CodeBonusUnavailable, "Bonus offer is no longer available"}}

	// Redemption rejections
	case errors.Is(err, model.ErrBelowMinimum):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeBelowMinimum, "Minimum redemption is 10000 points"}}
	case errors.Is(err, model.ErrInsufficientPoints):
		return &httpError{http.StatusUnprocessableEntity, APIError{CodeInsufficientPoints, "Not enough points"}}
	case errors.Is(err, model.ErrInvalidWallet):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidWallet, "Wallet type must be gopay, dana, ovo or shopeepay"}}
	case errors.Is(err, model.ErrInvalidPhone):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPhone, "Invalid phone number"}}

	// Auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid email or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrEmailExists):
		return &httpError{http.StatusConflict, APIError{CodeEmailExists, "Email already registered"}}
	case errors.Is(err, auth.ErrInvalidEmail):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidEmail, "Invalid email address"}}
	case errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password must be at least 6 characters"}}

	case errors.Is(err, context.DeadlineExceeded):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeTimeout, "Request timed out, try again"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Something went wrong, try again"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewForbiddenError creates a forbidden error
func NewForbiddenError(message string) error {
	return &httpError{http.StatusForbidden, APIError{CodeForbidden, message}}
}

// NewRateLimitedError creates a too-many-requests error
func NewRateLimitedError() error {
	return &httpError{http.StatusTooManyRequests, APIError{CodeRateLimited, "Too many requests, slow down"}}
}

// NewTimeoutError creates a request timeout error
func NewTimeoutError() error {
	return &httpError{http.StatusServiceUnavailable, APIError{CodeTimeout, "Request timed out, try again"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Something went wrong, try again"}}
}
