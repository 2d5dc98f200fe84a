package redemption

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

type ServiceSuite struct {
	suite.Suite
	storage   *memory.Storage
	clock     *mocks.MockClock
	publisher *mocks.MockPublisher
	service   *Service
	ctx       context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.publisher = mocks.NewMockPublisher()
	s.service = New(s.storage, s.publisher, s.clock, nil, testutil.NopLogger(), storage.DefaultRetryConfig())
	s.ctx = context.Background()
}

func (s *ServiceSuite) createUser(id model.UserID, points int) {
	user := model.NewUserAggregate(id, "user-"+string(id), "", s.clock.Now())
	user.TotalPoints = points
	s.Require().NoError(s.storage.CreateUser(s.ctx, user))
}

func (s *ServiceSuite) balance(id model.UserID) int {
	user, err := s.storage.GetUser(s.ctx, id)
	s.Require().NoError(err)
	return user.TotalPoints
}

func (s *ServiceSuite) TestScenarioLowBalance() {
	s.createUser("u1", 250)

	_, err := s.service.RequestRedemption(s.ctx, "u1", 10000, model.WalletDana, "081234567890")
	s.ErrorIs(err, model.ErrInsufficientPoints)

	_, err = s.service.RequestRedemption(s.ctx, "u1", 5000, model.WalletDana, "081234567890")
	s.ErrorIs(err, model.ErrBelowMinimum)

	s.Equal(250, s.balance("u1"))
	requests, err := s.service.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Empty(requests)
	s.Empty(s.publisher.Published())
}

func (s *ServiceSuite) TestAcceptedRedemption() {
	s.createUser("u1", 15000)

	req, err := s.service.RequestRedemption(s.ctx, "u1", 12000, model.WalletGoPay, " 081234567890 ")
	s.Require().NoError(err)
	s.Equal(model.UserID("u1"), req.UserID)
	s.Equal("user-u1", req.Username)
	s.Equal(model.WalletGoPay, req.WalletType)
	s.Equal("081234567890", req.PhoneNumber)
	s.Equal(12000, req.PointsRequested)
	s.Equal(12.0, req.CashAmount)
	s.Equal(model.RedemptionPending, req.Status)
	s.Equal(s.clock.Now(), req.RequestedAt)

	s.Equal(3000, s.balance("u1"))

	requests, err := s.service.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(requests, 1)
	s.Equal(req.ID, requests[0].ID)

	events := s.publisher.Published()
	s.Require().Len(events, 1)
	s.Equal(model.EventRedemptionRecorded, events[0].Type)
	s.Equal(3000, events[0].TotalPoints)
}

func (s *ServiceSuite) TestExactBalanceAllowed() {
	s.createUser("u1", 10000)

	_, err := s.service.RequestRedemption(s.ctx, "u1", 10000, model.WalletOVO, "+6281234567890")
	s.Require().NoError(err)
	s.Equal(0, s.balance("u1"))
}

func (s *ServiceSuite) TestMinimumCheckedBeforeStorage() {
	// Unknown user still gets the minimum rejection
	_, err := s.service.RequestRedemption(s.ctx, "ghost", 9999, model.WalletDana, "081234567890")
	s.ErrorIs(err, model.ErrBelowMinimum)

	_, err = s.service.RequestRedemption(s.ctx, "ghost", 10000, model.WalletDana, "081234567890")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *ServiceSuite) TestInvalidDestination() {
	s.createUser("u1", 20000)

	tests := []struct {
		wallet model.WalletType
		phone  string
		want   error
	}{
		{wallet: "paypal", phone: "081234567890", want: model.ErrInvalidWallet},
		{wallet: "", phone: "081234567890", want: model.ErrInvalidWallet},
		{wallet: model.WalletDana, phone: "", want: model.ErrInvalidPhone},
		{wallet: model.WalletDana, phone: "12ab", want: model.ErrInvalidPhone},
	}
	for _, tt := range tests {
		_, err := s.service.RequestRedemption(s.ctx, "u1", 10000, tt.wallet, tt.phone)
		s.ErrorIs(err, tt.want)
	}
	s.Equal(20000, s.balance("u1"))
}

func (s *ServiceSuite) TestConcurrentRequestsCannotDoubleSpend() {
	s.createUser("u1", 25000)

	const workers = 10
	var wg sync.WaitGroup
	var accepted, insufficient atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.RequestRedemption(s.ctx, "u1", 10000, model.WalletDana, "081234567890")
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, model.ErrInsufficientPoints):
				insufficient.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(2), accepted.Load())
	s.Equal(int32(workers-2), insufficient.Load())
	s.Equal(5000, s.balance("u1"))

	requests, err := s.service.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Len(requests, 2)
}

func (s *ServiceSuite) TestGetChecksOwner() {
	s.createUser("u1", 10000)
	s.createUser("u2", 0)

	req, err := s.service.RequestRedemption(s.ctx, "u1", 10000, model.WalletDana, "081234567890")
	s.Require().NoError(err)

	got, err := s.service.Get(s.ctx, "u1", req.ID)
	s.Require().NoError(err)
	s.Equal(req.ID, got.ID)

	_, err = s.service.Get(s.ctx, "u2", req.ID)
	s.ErrorIs(err, model.ErrRedemptionNotFound)
}
