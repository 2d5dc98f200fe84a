// Package storagetest holds the behavioural suite every storage backend must pass.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
	"github.com/ghozitech/ledger/internal/testutil"
)

// Suite is embedded by backend test suites. NewStorage is called once per test.
type Suite struct {
	suite.Suite
	NewStorage func(t *testing.T) storage.Storage

	store storage.Storage
	ctx   context.Context
	now   time.Time
}

func (s *Suite) SetupTest() {
	s.store = s.NewStorage(s.T())
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// Store returns the backend under test
func (s *Suite) Store() storage.Storage {
	return s.store
}

func (s *Suite) createUser(id model.UserID) *model.UserAggregate {
	user := model.NewUserAggregate(id, "user-"+string(id), string(id)+"@example.com", s.now)
	s.Require().NoError(s.store.CreateUser(s.ctx, user))
	return user
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	s.createUser("u1")

	retrieved, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), retrieved.ID)
	s.Equal("user-u1", retrieved.Username)
	s.Equal("u1@example.com", retrieved.Email)
	s.Equal(0, retrieved.TotalPoints)
	s.Equal(0, retrieved.FastestTime)
	s.NotNil(retrieved.DailyCompletions)
	s.WithinDuration(s.now, retrieved.CreatedAt, time.Second)
}

func (s *Suite) TestCreateDuplicateUser() {
	s.createUser("u1")

	err := s.store.CreateUser(s.ctx, model.NewUserAggregate("u1", "other", "", s.now))
	s.ErrorIs(err, model.ErrUserExists)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.store.GetUser(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestListUsers() {
	s.createUser("u1")
	s.createUser("u2")
	s.createUser("u3")

	users, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 3)

	ids := make([]model.UserID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	s.ElementsMatch([]model.UserID{"u1", "u2", "u3"}, ids)
}

func (s *Suite) TestListUsersEmpty() {
	users, err := s.store.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Empty(users)
}

// Update tests

func (s *Suite) TestUpdateUserCommitsAggregateAndRecords() {
	s.createUser("u1")
	date := model.CalendarDate(s.now)

	updated, err := s.store.UpdateUser(s.ctx, "u1", func(tx *storage.UserTx) error {
		tx.User.TotalPoints += 100
		tx.User.CompletedMissions++
		tx.User.FastestTime = 42
		tx.User.Accuracy = 100
		tx.User.LastPlayed = s.now
		tx.User.DailyCompletions[model.ReservationKey(1, date)] = s.now
		tx.AppendCompletion(model.CompletionRecord{
			ID: "c1", UserID: "u1", LevelID: 1, PointsEarned: 100,
			TimeTakenSeconds: 42, CompletedAt: s.now, CalendarDate: date,
		})
		return nil
	})
	s.Require().NoError(err)
	s.Equal(100, updated.TotalPoints)

	stored, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(100, stored.TotalPoints)
	s.Equal(1, stored.CompletedMissions)
	s.Equal(42, stored.FastestTime)
	s.InDelta(100.0, stored.Accuracy, 0.0001)
	s.True(stored.HasReservation(1, date))
	s.False(stored.HasReservation(2, date))

	records, err := s.store.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal("c1", records[0].ID)
	s.Equal(model.LevelID(1), records[0].LevelID)
	s.Equal(date, records[0].CalendarDate)
}

func (s *Suite) TestUpdateUserErrorWritesNothing() {
	s.createUser("u1")

	_, err := s.store.UpdateUser(s.ctx, "u1", func(tx *storage.UserTx) error {
		tx.User.TotalPoints = 999
		tx.AppendCompletion(model.CompletionRecord{ID: "c1", UserID: "u1", LevelID: 1, CompletedAt: s.now})
		return model.ErrAlreadyCompletedToday
	})
	s.ErrorIs(err, model.ErrAlreadyCompletedToday)

	stored, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(0, stored.TotalPoints)

	records, err := s.store.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *Suite) TestUpdateUserNotFound() {
	called := false
	_, err := s.store.UpdateUser(s.ctx, "nonexistent", func(tx *storage.UserTx) error {
		called = true
		return nil
	})
	s.ErrorIs(err, model.ErrUserNotFound)
	s.False(called)
}

func (s *Suite) TestReturnedUserIsACopy() {
	s.createUser("u1")

	user, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	user.TotalPoints = 5000
	user.DailyCompletions["level_1_completed_2024-01-01"] = s.now

	stored, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(0, stored.TotalPoints)
	s.Empty(stored.DailyCompletions)
}

// History tests

func (s *Suite) TestListCompletionsNewestFirstWithLimit() {
	s.createUser("u1")

	for i := 1; i <= 3; i++ {
		at := s.now.Add(time.Duration(i) * time.Minute)
		_, err := s.store.UpdateUser(s.ctx, "u1", func(tx *storage.UserTx) error {
			tx.AppendCompletion(model.CompletionRecord{
				ID: fmt.Sprintf("c%d", i), UserID: "u1", LevelID: model.LevelID(i),
				CompletedAt: at, CalendarDate: model.CalendarDate(at),
			})
			return nil
		})
		s.Require().NoError(err)
	}

	all, err := s.store.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("c3", all[0].ID)
	s.Equal("c1", all[2].ID)

	limited, err := s.store.ListCompletions(s.ctx, "u1", 2)
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.Equal("c3", limited[0].ID)
	s.Equal("c2", limited[1].ID)
}

func (s *Suite) TestListCompletionsUnknownUser() {
	records, err := s.store.ListCompletions(s.ctx, "nobody", 10)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *Suite) TestRedemptionsCommitWithUser() {
	s.createUser("u1")

	_, err := s.store.UpdateUser(s.ctx, "u1", func(tx *storage.UserTx) error {
		tx.User.TotalPoints = 0
		tx.AppendRedemption(model.RedemptionRequest{
			ID: "r1", UserID: "u1", Username: "user-u1", WalletType: model.WalletDana,
			PhoneNumber: "081234567890", PointsRequested: 10000, CashAmount: 10,
			Status: model.RedemptionPending, RequestedAt: s.now,
		})
		return nil
	})
	s.Require().NoError(err)

	_, err = s.store.UpdateUser(s.ctx, "u1", func(tx *storage.UserTx) error {
		tx.AppendRedemption(model.RedemptionRequest{
			ID: "r2", UserID: "u1", WalletType: model.WalletOVO, PointsRequested: 12000,
			CashAmount: 12, Status: model.RedemptionPending, RequestedAt: s.now.Add(time.Hour),
		})
		return nil
	})
	s.Require().NoError(err)

	requests, err := s.store.ListRedemptions(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(requests, 2)
	s.Equal("r2", requests[0].ID)
	s.Equal("r1", requests[1].ID)

	r1, err := s.store.GetRedemption(s.ctx, "r1")
	s.Require().NoError(err)
	s.Equal(model.WalletDana, r1.WalletType)
	s.Equal(10000, r1.PointsRequested)
	s.InDelta(10.0, r1.CashAmount, 0.0001)
	s.Equal(model.RedemptionPending, r1.Status)
}

func (s *Suite) TestGetRedemptionNotFound() {
	_, err := s.store.GetRedemption(s.ctx, "missing")
	s.ErrorIs(err, model.ErrRedemptionNotFound)
}

// Credential tests

func (s *Suite) TestSaveAndGetCredentials() {
	creds := &model.Credentials{
		UserID:       "u1",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		CreatedAt:    s.now,
	}
	s.Require().NoError(s.store.SaveCredentials(s.ctx, creds))

	retrieved, err := s.store.GetCredentialsByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), retrieved.UserID)
	s.Equal("hash", retrieved.PasswordHash)
}

func (s *Suite) TestGetCredentialsNotFound() {
	_, err := s.store.GetCredentialsByEmail(s.ctx, "nobody@example.com")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Concurrency tests

func (s *Suite) newUpdater() *storage.Updater {
	return storage.NewUpdater(s.store, storage.RetryConfig{
		MaxAttempts:     100,
		InitialInterval: time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
	}, testutil.NopLogger())
}

func (s *Suite) TestConcurrentUpdatesAreSerialised() {
	s.createUser("u1")
	updater := s.newUpdater()

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := updater.Update(s.ctx, "u1", func(tx *storage.UserTx) error {
				tx.User.TotalPoints += 10
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}

	stored, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(workers*10, stored.TotalPoints)
}

func (s *Suite) TestConcurrentReservationGrantedOnce() {
	s.createUser("u1")
	updater := s.newUpdater()
	date := model.CalendarDate(s.now)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := updater.Update(s.ctx, "u1", func(tx *storage.UserTx) error {
				if tx.User.HasReservation(1, date) {
					return model.ErrAlreadyCompletedToday
				}
				tx.User.DailyCompletions[model.ReservationKey(1, date)] = s.now
				tx.User.TotalPoints += 100
				tx.AppendCompletion(model.CompletionRecord{
					ID: fmt.Sprintf("c%d", i), UserID: "u1", LevelID: 1,
					PointsEarned: 100, CompletedAt: s.now, CalendarDate: date,
				})
				return nil
			})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, model.ErrAlreadyCompletedToday)
	}
	s.Equal(1, succeeded)

	stored, err := s.store.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(100, stored.TotalPoints)

	records, err := s.store.ListCompletions(s.ctx, "u1", 0)
	s.Require().NoError(err)
	s.Len(records, 1)
}
