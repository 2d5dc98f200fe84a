package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/events"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/services/gate"
	"github.com/ghozitech/ledger/internal/storage"
)

// minTimeTakenSeconds is the shortest completion time recorded
const minTimeTakenSeconds = 1

// Config holds configuration for the ledger
type Config struct {
	BonusPoints int
	BonusTTL    time.Duration
	Retry       storage.RetryConfig
}

// DefaultConfig returns default ledger configuration
func DefaultConfig() Config {
	return Config{
		BonusPoints: 50,
		BonusTTL:    10 * time.Minute,
		Retry:       storage.DefaultRetryConfig(),
	}
}

// Service applies completions and bonus credits to user aggregates
type Service struct {
	storage   storage.Storage
	updater   *storage.Updater
	publisher events.Publisher
	clock     clock.Clock
	metrics   *metrics.Metrics
	logger    *slog.Logger
	cfg       Config

	mu     sync.Mutex
	offers map[string]*model.BonusOffer
}

// New creates a new Ledger service
func New(
	store storage.Storage,
	publisher events.Publisher,
	clock clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Service {
	defaults := DefaultConfig()
	if cfg.BonusPoints <= 0 {
		cfg.BonusPoints = defaults.BonusPoints
	}
	if cfg.BonusTTL <= 0 {
		cfg.BonusTTL = defaults.BonusTTL
	}

	updater := storage.NewUpdater(store, cfg.Retry, logger)
	updater.OnRetry = m.StorageRetried

	return &Service{
		storage:   store,
		updater:   updater,
		publisher: publisher,
		clock:     clock,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		offers:    make(map[string]*model.BonusOffer),
	}
}

// ApplyCompletion credits an accepted completion once per level per calendar day.
// On success it returns the updated aggregate and a one-shot bonus offer.
func (s *Service) ApplyCompletion(
	ctx context.Context,
	userID model.UserID,
	levelID model.LevelID,
	pointsEarned int,
	timeTakenSeconds int,
) (*model.UserAggregate, *model.BonusOffer, error) {
	if pointsEarned < 0 || timeTakenSeconds < 0 {
		s.metrics.CompletionRejected("invalid_outcome")
		return nil, nil, model.ErrInvalidOutcome
	}
	// Zero marks fastestTime as unset, so sub-second solves count as one second
	if timeTakenSeconds < minTimeTakenSeconds {
		timeTakenSeconds = minTimeTakenSeconds
	}

	now := s.clock.Now()
	date := model.CalendarDate(now)

	updated, err := s.updater.Update(ctx, userID, func(tx *storage.UserTx) error {
		user := tx.User
		if err := gate.TryReserve(user, levelID, date, now); err != nil {
			return err
		}
		applyCompletion(user, pointsEarned, timeTakenSeconds, now)
		tx.AppendCompletion(model.CompletionRecord{
			ID:               uuid.NewString(),
			UserID:           userID,
			LevelID:          levelID,
			PointsEarned:     pointsEarned,
			TimeTakenSeconds: timeTakenSeconds,
			CompletedAt:      now,
			CalendarDate:     date,
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrAlreadyCompletedToday) {
			s.metrics.CompletionRejected("already_completed")
			s.logger.Info("completion rejected",
				slog.String("user_id", string(userID)),
				slog.Int("level_id", int(levelID)),
				slog.String("date", date))
			return nil, nil, err
		}
		s.metrics.CompletionRejected("error")
		s.logger.Error("failed to apply completion",
			slog.String("user_id", string(userID)),
			slog.Int("level_id", int(levelID)),
			slog.String("error", err.Error()))
		return nil, nil, err
	}

	s.metrics.CompletionApplied(pointsEarned)
	s.logger.Info("completion applied",
		slog.String("user_id", string(userID)),
		slog.Int("level_id", int(levelID)),
		slog.Int("points", pointsEarned),
		slog.Int("total_points", updated.TotalPoints))

	s.publish(model.EventCompletionApplied, updated, now)

	return updated, s.newOffer(userID, now), nil
}

// applyCompletion mutates the aggregate counters for one accepted completion
func applyCompletion(user *model.UserAggregate, points, seconds int, now time.Time) {
	prev := user.CompletedMissions
	user.TotalPoints += points
	user.CompletedMissions = prev + 1
	if prev == 0 {
		user.Accuracy = 100
	} else {
		user.Accuracy = (user.Accuracy*float64(prev) + 100) / float64(user.CompletedMissions)
	}
	if user.FastestTime == 0 || seconds < user.FastestTime {
		user.FastestTime = seconds
	}
	user.LastPlayed = now
}

// ClaimBonus credits a bonus offer. Offers are single-use, owner-only and expire.
func (s *Service) ClaimBonus(ctx context.Context, userID model.UserID, offerID string) (*model.UserAggregate, error) {
	now := s.clock.Now()

	offer, err := s.takeOffer(userID, offerID, now)
	if err != nil {
		s.metrics.BonusClaimed("unavailable", 0)
		return nil, err
	}

	updated, err := s.updater.Update(ctx, userID, func(tx *storage.UserTx) error {
		tx.User.TotalPoints += offer.Points
		return nil
	})
	if err != nil {
		// Storage failed after retries; give the offer back so the claim can be repeated
		s.restoreOffer(offer)
		s.metrics.BonusClaimed("error", 0)
		s.logger.Error("failed to credit bonus",
			slog.String("user_id", string(userID)),
			slog.String("offer_id", offerID),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.metrics.BonusClaimed("accepted", offer.Points)
	s.logger.Info("bonus credited",
		slog.String("user_id", string(userID)),
		slog.String("offer_id", offerID),
		slog.Int("points", offer.Points))

	s.publish(model.EventBonusCredited, updated, now)
	return updated, nil
}

// History returns the user's completion records, newest first
func (s *Service) History(ctx context.Context, userID model.UserID, limit int) ([]model.CompletionRecord, error) {
	if _, err := s.storage.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.storage.ListCompletions(ctx, userID, limit)
}

// CleanExpiredOffers drops offers past their expiry (call periodically)
func (s *Service) CleanExpiredOffers() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, offer := range s.offers {
		if !now.Before(offer.ExpiresAt) {
			delete(s.offers, id)
			removed++
		}
	}
	return removed
}

func (s *Service) newOffer(userID model.UserID, now time.Time) *model.BonusOffer {
	offer := &model.BonusOffer{
		ID:        uuid.NewString(),
		UserID:    userID,
		Points:    s.cfg.BonusPoints,
		ExpiresAt: now.Add(s.cfg.BonusTTL),
	}

	s.mu.Lock()
	s.offers[offer.ID] = offer
	s.mu.Unlock()

	o := *offer
	return &o
}

// takeOffer removes and returns a claimable offer
func (s *Service) takeOffer(userID model.UserID, offerID string, now time.Time) (*model.BonusOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, ok := s.offers[offerID]
	if !ok || offer.UserID != userID {
		return nil, model.ErrBonusUnavailable
	}
	if !now.Before(offer.ExpiresAt) {
		delete(s.offers, offerID)
		return nil, model.ErrBonusUnavailable
	}
	delete(s.offers, offerID)
	return offer, nil
}

func (s *Service) restoreOffer(offer *model.BonusOffer) {
	s.mu.Lock()
	s.offers[offer.ID] = offer
	s.mu.Unlock()
}

func (s *Service) publish(eventType model.EventType, user *model.UserAggregate, now time.Time) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(model.Event{
		Type:        eventType,
		Timestamp:   now,
		UserID:      user.ID,
		TotalPoints: user.TotalPoints,
	})
}

// Interface for dependency injection
type ServiceInterface interface {
	ApplyCompletion(ctx context.Context, userID model.UserID, levelID model.LevelID, pointsEarned int, timeTakenSeconds int) (*model.UserAggregate, *model.BonusOffer, error)
	ClaimBonus(ctx context.Context, userID model.UserID, offerID string) (*model.UserAggregate, error)
	History(ctx context.Context, userID model.UserID, limit int) ([]model.CompletionRecord, error)
}

var _ ServiceInterface = (*Service)(nil)
