package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ghozitech/ledger/internal/model"
)

// RetryConfig bounds retries of transient storage failures
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the retry policy used by the ledger and redemption paths
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// Updater runs atomic user updates, retrying transient failures with bounded backoff.
// Validation rejections and missing users are terminal and returned as-is.
type Updater struct {
	store  Storage
	cfg    RetryConfig
	logger *slog.Logger

	// OnRetry, when set, is called before each retry
	OnRetry func()
}

// NewUpdater creates an Updater
func NewUpdater(store Storage, cfg RetryConfig, logger *slog.Logger) *Updater {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig()
	}
	return &Updater{store: store, cfg: cfg, logger: logger}
}

// Update applies fn to the user atomically
func (u *Updater) Update(ctx context.Context, id model.UserID, fn UpdateFunc) (*model.UserAggregate, error) {
	var result *model.UserAggregate
	op := func() error {
		updated, err := u.store.UpdateUser(ctx, id, fn)
		if err != nil {
			if isTerminal(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		result = updated
		return nil
	}

	notify := func(err error, wait time.Duration) {
		if u.OnRetry != nil {
			u.OnRetry()
		}
		u.logger.Warn("retrying user update",
			slog.String("user_id", string(id)),
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	}

	if err := backoff.RetryNotify(op, u.policy(ctx), notify); err != nil {
		if isTerminal(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return result, nil
}

func (u *Updater) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = u.cfg.InitialInterval
	exp.MaxInterval = u.cfg.MaxInterval
	exp.MaxElapsedTime = 0 // bounded by attempts instead
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(u.cfg.MaxAttempts-1)), ctx)
}

func isTerminal(err error) bool {
	return model.IsRejection(err) ||
		errors.Is(err, model.ErrUserNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
