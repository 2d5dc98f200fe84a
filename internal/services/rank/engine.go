package rank

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/storage"
)

// DefaultN is the leaderboard size when none is requested
const DefaultN = 10

// Subscriber is the source of change notifications
type Subscriber interface {
	Subscribe(buffer int) (<-chan model.Event, func())
}

// Pusher receives the top of the leaderboard after every rebuild
type Pusher interface {
	PushLeaderboard(entries []*model.UserAggregate)
}

// snapshot is an immutable ranked view
type snapshot struct {
	users   []*model.UserAggregate
	builtAt time.Time
}

// Engine keeps a materialized ranking of all users, rebuilt whenever an
// aggregate changes. Reads never take a lock.
type Engine struct {
	storage    storage.Storage
	subscriber Subscriber
	pusher     Pusher
	clock      clock.Clock
	metrics    *metrics.Metrics
	logger     *slog.Logger

	current atomic.Pointer[snapshot]
}

// NewEngine creates a new rank Engine. pusher may be nil.
func NewEngine(
	store storage.Storage,
	subscriber Subscriber,
	pusher Pusher,
	clock clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	e := &Engine{
		storage:    store,
		subscriber: subscriber,
		pusher:     pusher,
		clock:      clock,
		metrics:    m,
		logger:     logger.With(slog.String("component", "rank-engine")),
	}
	e.current.Store(&snapshot{})
	return e
}

// Run rebuilds the ranking on every change event until ctx is done.
// Bursts of events are coalesced into one rebuild.
func (e *Engine) Run(ctx context.Context) error {
	events, unsubscribe := e.subscriber.Subscribe(0)
	defer unsubscribe()

	if err := e.Refresh(ctx); err != nil {
		e.logger.Error("initial leaderboard build failed", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			drain(events)
			if err := e.Refresh(ctx); err != nil {
				e.logger.Error("leaderboard rebuild failed", slog.String("error", err.Error()))
			}
		}
	}
}

func drain(events <-chan model.Event) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Refresh rebuilds the ranking from storage and pushes the new top entries
func (e *Engine) Refresh(ctx context.Context) error {
	start := time.Now()

	users, err := e.storage.ListUsers(ctx)
	if err != nil {
		return err
	}
	Sort(users)

	e.current.Store(&snapshot{users: users, builtAt: e.clock.Now()})
	e.metrics.LeaderboardRebuilt(time.Since(start))

	if e.pusher != nil {
		e.pusher.PushLeaderboard(e.TopN(DefaultN))
	}
	return nil
}

// TopN returns up to n users in rank order as fresh copies
func (e *Engine) TopN(n int) []*model.UserAggregate {
	if n <= 0 {
		n = DefaultN
	}
	users := e.current.Load().users
	if n > len(users) {
		n = len(users)
	}

	result := make([]*model.UserAggregate, n)
	for i := 0; i < n; i++ {
		result[i] = users[i].Clone()
	}
	return result
}

// Position returns the 1-based rank of a user in the current snapshot
func (e *Engine) Position(userID model.UserID) (int, bool) {
	for i, u := range e.current.Load().users {
		if u.ID == userID {
			return i + 1, true
		}
	}
	return 0, false
}

// BuiltAt returns when the current snapshot was built
func (e *Engine) BuiltAt() time.Time {
	return e.current.Load().builtAt
}

// Sort orders users by totalPoints descending, then createdAt, then userId
func Sort(users []*model.UserAggregate) {
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Interface for dependency injection
type EngineInterface interface {
	TopN(n int) []*model.UserAggregate
	Position(userID model.UserID) (int, bool)
}

var _ EngineInterface = (*Engine)(nil)
