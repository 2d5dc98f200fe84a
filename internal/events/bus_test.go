package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/testutil"
)

type BusSuite struct {
	suite.Suite
	bus *Bus
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}

func (s *BusSuite) SetupTest() {
	s.bus = NewBus(testutil.NopLogger())
}

func (s *BusSuite) event(userID model.UserID) model.Event {
	return model.Event{
		Type:      model.EventCompletionApplied,
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		UserID:    userID,
	}
}

func (s *BusSuite) TestPublishFansOut() {
	ch1, unsub1 := s.bus.Subscribe(1)
	defer unsub1()
	ch2, unsub2 := s.bus.Subscribe(1)
	defer unsub2()

	s.bus.Publish(s.event("u1"))

	s.Equal(model.UserID("u1"), (<-ch1).UserID)
	s.Equal(model.UserID("u1"), (<-ch2).UserID)
}

func (s *BusSuite) TestPublishDoesNotBlockOnFullSubscriber() {
	ch, unsub := s.bus.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		s.bus.Publish(s.event("u1"))
		s.bus.Publish(s.event("u2"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("publish blocked")
	}

	s.Equal(model.UserID("u1"), (<-ch).UserID)
	s.Empty(ch)
}

func (s *BusSuite) TestUnsubscribeClosesChannel() {
	ch, unsub := s.bus.Subscribe(1)
	s.Equal(1, s.bus.SubscriberCount())

	unsub()
	unsub()

	_, ok := <-ch
	s.False(ok)
	s.Equal(0, s.bus.SubscriberCount())

	s.NotPanics(func() { s.bus.Publish(s.event("u1")) })
}

func (s *BusSuite) TestCloseClosesAllSubscribers() {
	ch1, unsub1 := s.bus.Subscribe(1)
	ch2, _ := s.bus.Subscribe(1)

	s.bus.Close()

	_, ok := <-ch1
	s.False(ok)
	_, ok = <-ch2
	s.False(ok)

	s.NotPanics(unsub1)
	s.NotPanics(func() { s.bus.Publish(s.event("u1")) })

	late, _ := s.bus.Subscribe(1)
	_, ok = <-late
	s.False(ok)
}
