package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ghozitech/ledger/internal/dependencies/mocks"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
	"github.com/ghozitech/ledger/internal/storage/memory"
	"github.com/ghozitech/ledger/internal/testutil"
)

// flakyStorage fails the next N updates with a transient conflict
type flakyStorage struct {
	*memory.Storage
	failures atomic.Int32
}

func (f *flakyStorage) UpdateUser(ctx context.Context, id model.UserID, fn storage.UpdateFunc) (*model.UserAggregate, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, storage.ErrConflict
	}
	return f.Storage.UpdateUser(ctx, id, fn)
}

type ServiceSuite struct {
	suite.Suite
	storage   *flakyStorage
	clock     *mocks.MockClock
	publisher *mocks.MockPublisher
	service   *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = &flakyStorage{Storage: memory.New()}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.publisher = mocks.NewMockPublisher()
	cfg := DefaultConfig()
	cfg.Retry = storage.RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	s.service = New(s.storage, s.publisher, s.clock, nil, testutil.NopLogger(), cfg)
	s.ctx = context.Background()

	s.createUser("u1")
}

func (s *ServiceSuite) createUser(id model.UserID) {
	user := model.NewUserAggregate(id, "user-"+string(id), "", s.clock.Now())
	s.Require().NoError(s.storage.CreateUser(s.ctx, user))
}

func (s *ServiceSuite) user(id model.UserID) *model.UserAggregate {
	user, err := s.storage.GetUser(s.ctx, id)
	s.Require().NoError(err)
	return user
}

// ApplyCompletion tests

func (s *ServiceSuite) TestScenarioTwoLevelsThenDuplicate() {
	updated, offer, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)
	s.NotNil(offer)
	s.Equal(100, updated.TotalPoints)
	s.Equal(1, updated.CompletedMissions)
	s.Equal(100.0, updated.Accuracy)
	s.Equal(45, updated.FastestTime)

	updated, _, err = s.service.ApplyCompletion(s.ctx, "u1", 2, 150, 30)
	s.Require().NoError(err)
	s.Equal(250, updated.TotalPoints)
	s.Equal(2, updated.CompletedMissions)
	s.Equal(100.0, updated.Accuracy)
	s.Equal(30, updated.FastestTime)

	_, offer, err = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 20)
	s.ErrorIs(err, model.ErrAlreadyCompletedToday)
	s.Nil(offer)

	stored := s.user("u1")
	s.Equal(250, stored.TotalPoints)
	s.Equal(2, stored.CompletedMissions)
	s.Equal(100.0, stored.Accuracy)
	s.Equal(30, stored.FastestTime)
}

func (s *ServiceSuite) TestDuplicateAppendsOneRecord() {
	_, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)
	_, _, err = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.ErrorIs(err, model.ErrAlreadyCompletedToday)

	records, err := s.storage.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(model.LevelID(1), records[0].LevelID)
	s.Equal(100, records[0].PointsEarned)
	s.Equal(45, records[0].TimeTakenSeconds)
	s.Equal("2024-01-01", records[0].CalendarDate)
	s.Equal(s.clock.Now(), records[0].CompletedAt)
	s.NotEmpty(records[0].ID)
}

func (s *ServiceSuite) TestSameLevelNextDayAccepted() {
	_, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)

	s.clock.Advance(24 * time.Hour)

	updated, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 50)
	s.Require().NoError(err)
	s.Equal(200, updated.TotalPoints)
	s.True(updated.HasReservation(1, "2024-01-01"))
	s.True(updated.HasReservation(1, "2024-01-02"))
}

func (s *ServiceSuite) TestAccuracyAlwaysHundred() {
	for day := 0; day < 5; day++ {
		for level := model.LevelID(1); level <= 3; level++ {
			updated, _, err := s.service.ApplyCompletion(s.ctx, "u1", level, 10, 60)
			s.Require().NoError(err)
			s.Equal(100.0, updated.Accuracy)
		}
		s.clock.Advance(24 * time.Hour)
	}
	s.Equal(15, s.user("u1").CompletedMissions)
}

func (s *ServiceSuite) TestFastestTimeNeverIncreases() {
	times := []int{45, 60, 30, 90}
	want := []int{45, 45, 30, 30}

	for i, t := range times {
		updated, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, t)
		s.Require().NoError(err)
		s.Equal(want[i], updated.FastestTime)
		s.clock.Advance(24 * time.Hour)
	}
}

func (s *ServiceSuite) TestSubSecondCompletionRecordsOneSecond() {
	updated, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 0)
	s.Require().NoError(err)
	s.Equal(1, updated.FastestTime)

	updated, _, err = s.service.ApplyCompletion(s.ctx, "u1", 2, 150, 45)
	s.Require().NoError(err)
	s.Equal(1, updated.FastestTime)

	records, err := s.storage.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(45, records[0].TimeTakenSeconds)
	s.Equal(1, records[1].TimeTakenSeconds)
}

func (s *ServiceSuite) TestInvalidOutcomeRejected() {
	_, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, -5, 10)
	s.ErrorIs(err, model.ErrInvalidOutcome)

	_, _, err = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, -1)
	s.ErrorIs(err, model.ErrInvalidOutcome)

	stored := s.user("u1")
	s.Equal(0, stored.TotalPoints)
	s.Empty(stored.DailyCompletions)
	s.Empty(s.publisher.Published())
}

func (s *ServiceSuite) TestUnknownUser() {
	_, _, err := s.service.ApplyCompletion(s.ctx, "ghost", 1, 100, 45)
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestPublishesEventAfterCommit() {
	_, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)

	events := s.publisher.Published()
	s.Require().Len(events, 1)
	s.Equal(model.EventCompletionApplied, events[0].Type)
	s.Equal(model.UserID("u1"), events[0].UserID)
	s.Equal(100, events[0].TotalPoints)
}

func (s *ServiceSuite) TestRejectionDoesNotPublish() {
	_, _, _ = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	_, _, _ = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Len(s.publisher.Published(), 1)
}

func (s *ServiceSuite) TestTransientFailureRetried() {
	s.storage.failures.Store(2)

	updated, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)
	s.Equal(100, updated.TotalPoints)

	records, err := s.storage.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *ServiceSuite) TestExhaustedRetriesCommitNothing() {
	s.storage.failures.Store(10)

	_, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().Error(err)
	s.True(errors.Is(err, storage.ErrConflict))
	s.False(model.IsRejection(err))

	s.storage.failures.Store(0)
	stored := s.user("u1")
	s.Equal(0, stored.TotalPoints)
	s.Empty(stored.DailyCompletions)

	// The whole attempt can be retried safely
	updated, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)
	s.Equal(100, updated.TotalPoints)
}

func (s *ServiceSuite) TestConcurrentDuplicateCompletionsGrantOnce() {
	const workers = 10
	var wg sync.WaitGroup
	var granted, rejected atomic.Int32

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
			switch {
			case err == nil:
				granted.Add(1)
			case errors.Is(err, model.ErrAlreadyCompletedToday):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), granted.Load())
	s.Equal(int32(workers-1), rejected.Load())
	s.Equal(100, s.user("u1").TotalPoints)
	s.Equal(1, s.user("u1").CompletedMissions)
}

// Bonus tests

func (s *ServiceSuite) TestClaimBonusCredits() {
	_, offer, err := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.Require().NoError(err)
	s.Equal(50, offer.Points)
	s.Equal(s.clock.Now().Add(10*time.Minute), offer.ExpiresAt)

	updated, err := s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.Require().NoError(err)
	s.Equal(150, updated.TotalPoints)
	s.Equal(1, updated.CompletedMissions)
	s.Equal(100.0, updated.Accuracy)

	records, err := s.storage.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Len(records, 1)

	events := s.publisher.Published()
	s.Require().Len(events, 2)
	s.Equal(model.EventBonusCredited, events[1].Type)
}

func (s *ServiceSuite) TestClaimBonusOnlyOnce() {
	_, offer, _ := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)

	_, err := s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.Require().NoError(err)

	_, err = s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.ErrorIs(err, model.ErrBonusUnavailable)
	s.Equal(150, s.user("u1").TotalPoints)
}

func (s *ServiceSuite) TestClaimBonusWrongOwner() {
	s.createUser("u2")
	_, offer, _ := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)

	_, err := s.service.ClaimBonus(s.ctx, "u2", offer.ID)
	s.ErrorIs(err, model.ErrBonusUnavailable)

	// Still claimable by its owner
	_, err = s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.NoError(err)
}

func (s *ServiceSuite) TestClaimBonusExpired() {
	_, offer, _ := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.clock.Advance(10 * time.Minute)

	_, err := s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.ErrorIs(err, model.ErrBonusUnavailable)
	s.Equal(100, s.user("u1").TotalPoints)
}

func (s *ServiceSuite) TestClaimBonusUnknownOffer() {
	_, err := s.service.ClaimBonus(s.ctx, "u1", "nope")
	s.ErrorIs(err, model.ErrBonusUnavailable)
}

func (s *ServiceSuite) TestClaimBonusRestoredAfterStorageFailure() {
	_, offer, _ := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)

	s.storage.failures.Store(10)
	_, err := s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.Require().Error(err)

	s.storage.failures.Store(0)
	updated, err := s.service.ClaimBonus(s.ctx, "u1", offer.ID)
	s.Require().NoError(err)
	s.Equal(150, updated.TotalPoints)
}

func (s *ServiceSuite) TestConcurrentBonusClaimsCreditOnce() {
	_, offer, _ := s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.service.ClaimBonus(s.ctx, "u1", offer.ID); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(150, s.user("u1").TotalPoints)
}

func (s *ServiceSuite) TestCleanExpiredOffers() {
	_, _, _ = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	_, _, _ = s.service.ApplyCompletion(s.ctx, "u1", 2, 150, 45)

	s.Equal(0, s.service.CleanExpiredOffers())
	s.clock.Advance(11 * time.Minute)
	s.Equal(2, s.service.CleanExpiredOffers())
}

// History tests

func (s *ServiceSuite) TestHistoryNewestFirst() {
	_, _, _ = s.service.ApplyCompletion(s.ctx, "u1", 1, 100, 45)
	s.clock.Advance(time.Minute)
	_, _, _ = s.service.ApplyCompletion(s.ctx, "u1", 2, 150, 30)

	records, err := s.service.History(s.ctx, "u1", 10)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(model.LevelID(2), records[0].LevelID)
	s.Equal(model.LevelID(1), records[1].LevelID)

	records, err = s.service.History(s.ctx, "u1", 1)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *ServiceSuite) TestHistoryUnknownUser() {
	_, err := s.service.History(s.ctx, "ghost", 10)
	s.ErrorIs(err, model.ErrUserNotFound)
}
