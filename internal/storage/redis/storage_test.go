package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
	"github.com/ghozitech/ledger/internal/storage/storagetest"
	"github.com/ghozitech/ledger/internal/testutil"
)

func newTestStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mini.Addr(),
	})
	st := NewWithClient(client, DefaultConfig())
	t.Cleanup(func() { _ = st.Close() })
	return st, mini
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		NewStorage: func(t *testing.T) storage.Storage {
			st, _ := newTestStorage(t)
			return st
		},
	})
}

type RedisSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestRedisSuite(t *testing.T) {
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupTest() {
	s.storage, s.mini = newTestStorage(s.T())
	s.ctx = context.Background()
	user := model.NewUserAggregate("u1", "alice", "alice@example.com", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.Require().NoError(s.storage.CreateUser(s.ctx, user))
}

func (s *RedisSuite) TestCreateUserIndexFailureStoresNothing() {
	s.mini.Del("ghozi:idx:users")
	s.Require().NoError(s.mini.Set("ghozi:idx:users", "not-a-set"))

	user := model.NewUserAggregate("u2", "bob", "bob@example.com", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.Error(s.storage.CreateUser(s.ctx, user))
	s.False(s.mini.Exists("ghozi:user:u2"))

	_, err := s.storage.GetUser(s.ctx, "u2")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *RedisSuite) TestCreateUserDuplicateKeepsIndex() {
	dup := model.NewUserAggregate("u1", "mallory", "", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))
	s.ErrorIs(s.storage.CreateUser(s.ctx, dup), model.ErrUserExists)

	users, err := s.storage.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("alice", users[0].Username)
}

func (s *RedisSuite) TestKeysUsePrefix() {
	s.True(s.mini.Exists("ghozi:user:u1"))
	members, err := s.mini.Members("ghozi:idx:users")
	s.Require().NoError(err)
	s.Equal([]string{"u1"}, members)
}

func (s *RedisSuite) TestUpdateUserConflictOnConcurrentWrite() {
	_, err := s.storage.UpdateUser(s.ctx, "u1", func(tx *storage.UserTx) error {
		// Another writer touches the watched key mid-transaction
		s.Require().NoError(s.storage.client.Set(s.ctx, userKey("u1"), `{"userId":"u1","totalPoints":7}`, 0).Err())
		tx.User.TotalPoints = 100
		return nil
	})
	s.ErrorIs(err, storage.ErrConflict)

	stored, err := s.storage.GetUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(7, stored.TotalPoints)
}

func (s *RedisSuite) TestUpdaterRetriesConflict() {
	updater := storage.NewUpdater(s.storage, storage.RetryConfig{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	}, testutil.NopLogger())

	attempts := 0
	updated, err := updater.Update(s.ctx, "u1", func(tx *storage.UserTx) error {
		attempts++
		if attempts == 1 {
			s.Require().NoError(s.storage.client.Set(s.ctx, userKey("u1"), `{"userId":"u1","totalPoints":7}`, 0).Err())
		}
		tx.User.TotalPoints += 100
		return nil
	})
	s.Require().NoError(err)
	s.Equal(2, attempts)
	s.Equal(107, updated.TotalPoints)
}

func (s *RedisSuite) TestSkipsCorruptUser() {
	s.Require().NoError(s.mini.Set("ghozi:user:broken", "not-json"))
	_, err := s.mini.SAdd("ghozi:idx:users", "broken")
	s.Require().NoError(err)

	users, err := s.storage.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}
