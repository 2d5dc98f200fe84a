package redemption

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/events"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
)

// phonePattern accepts an optional leading + and 8 to 15 digits
var phonePattern = regexp.MustCompile(`^\+?[0-9]{8,15}$`)

// Service converts point balances into pending payout requests
type Service struct {
	storage   storage.Storage
	updater   *storage.Updater
	publisher events.Publisher
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates a new Redemption service
func New(
	store storage.Storage,
	publisher events.Publisher,
	clock clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
	retry storage.RetryConfig,
) *Service {
	updater := storage.NewUpdater(store, retry, logger)
	updater.OnRetry = m.StorageRetried

	return &Service{
		storage:   store,
		updater:   updater,
		publisher: publisher,
		clock:     clock,
		metrics:   m,
		logger:    logger,
	}
}

// RequestRedemption debits points and records a pending request in one atomic update.
// The minimum is checked before storage is touched; the balance inside the update.
func (s *Service) RequestRedemption(
	ctx context.Context,
	userID model.UserID,
	points int,
	walletType model.WalletType,
	phoneNumber string,
) (*model.RedemptionRequest, error) {
	if points < model.MinRedemptionPoints {
		return nil, s.reject(userID, points, model.ErrBelowMinimum)
	}
	if !walletType.IsValid() {
		return nil, s.reject(userID, points, model.ErrInvalidWallet)
	}
	phoneNumber = strings.TrimSpace(phoneNumber)
	if !phonePattern.MatchString(phoneNumber) {
		return nil, s.reject(userID, points, model.ErrInvalidPhone)
	}

	now := s.clock.Now()
	var request model.RedemptionRequest

	updated, err := s.updater.Update(ctx, userID, func(tx *storage.UserTx) error {
		if points > tx.User.TotalPoints {
			return model.ErrInsufficientPoints
		}
		tx.User.TotalPoints -= points
		request = model.RedemptionRequest{
			ID:              uuid.NewString(),
			UserID:          userID,
			Username:        tx.User.Username,
			WalletType:      walletType,
			PhoneNumber:     phoneNumber,
			PointsRequested: points,
			CashAmount:      model.CashAmount(points),
			Status:          model.RedemptionPending,
			RequestedAt:     now,
		}
		tx.AppendRedemption(request)
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrInsufficientPoints) {
			return nil, s.reject(userID, points, err)
		}
		s.metrics.RedemptionRecorded("error", 0)
		s.logger.Error("failed to record redemption",
			slog.String("user_id", string(userID)),
			slog.Int("points", points),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.metrics.RedemptionRecorded("accepted", points)
	s.logger.Info("redemption recorded",
		slog.String("user_id", string(userID)),
		slog.String("request_id", request.ID),
		slog.Int("points", points),
		slog.String("wallet", string(walletType)),
		slog.Int("remaining_points", updated.TotalPoints))

	if s.publisher != nil {
		s.publisher.Publish(model.Event{
			Type:        model.EventRedemptionRecorded,
			Timestamp:   now,
			UserID:      userID,
			TotalPoints: updated.TotalPoints,
		})
	}

	return &request, nil
}

// List returns the user's requests, newest first
func (s *Service) List(ctx context.Context, userID model.UserID) ([]model.RedemptionRequest, error) {
	return s.storage.ListRedemptions(ctx, userID)
}

// Get returns one of the user's requests
func (s *Service) Get(ctx context.Context, userID model.UserID, id string) (*model.RedemptionRequest, error) {
	r, err := s.storage.GetRedemption(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != userID {
		return nil, model.ErrRedemptionNotFound
	}
	return r, nil
}

func (s *Service) reject(userID model.UserID, points int, err error) error {
	reason := "rejected"
	switch {
	case errors.Is(err, model.ErrBelowMinimum):
		reason = "below_minimum"
	case errors.Is(err, model.ErrInsufficientPoints):
		reason = "insufficient_points"
	case errors.Is(err, model.ErrInvalidWallet), errors.Is(err, model.ErrInvalidPhone):
		reason = "invalid_destination"
	}
	s.metrics.RedemptionRecorded(reason, 0)
	s.logger.Info("redemption rejected",
		slog.String("user_id", string(userID)),
		slog.Int("points", points),
		slog.String("reason", reason))
	return err
}

// Interface for dependency injection
type ServiceInterface interface {
	RequestRedemption(ctx context.Context, userID model.UserID, points int, walletType model.WalletType, phoneNumber string) (*model.RedemptionRequest, error)
	List(ctx context.Context, userID model.UserID) ([]model.RedemptionRequest, error)
	Get(ctx context.Context, userID model.UserID, id string) (*model.RedemptionRequest, error)
}

var _ ServiceInterface = (*Service)(nil)
