package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ghozitech/ledger/internal/dependencies/clock"
	"github.com/ghozitech/ledger/internal/dependencies/random"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/model"
	"github.com/ghozitech/ledger/internal/services/adjudicator"
	"github.com/ghozitech/ledger/internal/services/gate"
	"github.com/ghozitech/ledger/internal/services/ledger"
	"github.com/ghozitech/ledger/internal/storage"
)

// tickInterval is the countdown resolution
const tickInterval = time.Second

// Config holds configuration for the session manager
type Config struct {
	// RetentionPeriod is how long finished sessions stay readable
	RetentionPeriod time.Duration
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		RetentionPeriod: 10 * time.Minute,
	}
}

// attempt is one live session plus its countdown goroutine.
// mu guards session and crediting; done is closed once when ticking must stop.
type attempt struct {
	mu        sync.Mutex
	session   model.LevelSession
	crediting bool
	ticker    clock.Ticker
	done      chan struct{}
	stopOnce  sync.Once
}

func (a *attempt) stop() bool {
	stopped := false
	a.stopOnce.Do(func() {
		a.ticker.Stop()
		close(a.done)
		stopped = true
	})
	return stopped
}

// Manager runs level attempts: countdown, outcome submission and the single
// hand-off of a win to the ledger.
type Manager struct {
	storage      storage.Storage
	ledger       ledger.ServiceInterface
	adjudicators *adjudicator.Registry
	clock        clock.Clock
	random       random.Random
	metrics      *metrics.Metrics
	logger       *slog.Logger
	cfg          Config

	mu       sync.RWMutex
	sessions map[model.SessionHandle]*attempt
}

// NewManager creates a new session Manager
func NewManager(
	store storage.Storage,
	ledger ledger.ServiceInterface,
	adjudicators *adjudicator.Registry,
	clock clock.Clock,
	random random.Random,
	m *metrics.Metrics,
	logger *slog.Logger,
	cfg Config,
) *Manager {
	if cfg.RetentionPeriod <= 0 {
		cfg.RetentionPeriod = DefaultConfig().RetentionPeriod
	}
	return &Manager{
		storage:      store,
		ledger:       ledger,
		adjudicators: adjudicators,
		clock:        clock,
		random:       random,
		metrics:      m,
		logger:       logger,
		cfg:          cfg,
		sessions:     make(map[model.SessionHandle]*attempt),
	}
}

// StartAttempt opens a Playing session for the level and starts its countdown.
// Levels already rewarded today are refused up front.
func (m *Manager) StartAttempt(ctx context.Context, userID model.UserID, levelID model.LevelID) (*model.LevelSession, error) {
	level, err := model.GetLevel(levelID)
	if err != nil {
		return nil, err
	}

	user, err := m.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	if err := gate.Check(user, levelID, model.CalendarDate(now)); err != nil {
		return nil, err
	}

	a := &attempt{
		session: model.LevelSession{
			Handle:               model.SessionHandle(m.random.Token("att_")),
			UserID:               userID,
			LevelID:              levelID,
			StartTime:            now,
			TimeRemainingSeconds: int(level.TimeLimit / time.Second),
			State:                model.SessionPlaying,
		},
		ticker: m.clock.NewTicker(tickInterval),
		done:   make(chan struct{}),
	}

	m.mu.Lock()
	m.sessions[a.session.Handle] = a
	m.mu.Unlock()

	go m.run(a)

	m.metrics.SessionStarted()
	m.logger.Info("attempt started",
		slog.String("handle", string(a.session.Handle)),
		slog.String("user_id", string(userID)),
		slog.Int("level_id", int(levelID)))

	s := a.session
	return &s, nil
}

// run drives the countdown until the session ends
func (m *Manager) run(a *attempt) {
	for {
		select {
		case <-a.done:
			return
		case <-a.ticker.C():
			if m.tick(a) {
				return
			}
		}
	}
}

// tick counts one second down and reports whether the session is over
func (m *Manager) tick(a *attempt) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.session.State != model.SessionPlaying {
		return true
	}
	// The clock holds while a win is being credited
	if a.crediting {
		return false
	}

	a.session.TimeRemainingSeconds--
	if a.session.TimeRemainingSeconds > 0 {
		return false
	}

	a.session.TimeRemainingSeconds = 0
	a.session.State = model.SessionLost
	a.session.EndedAt = m.clock.Now()
	if a.stop() {
		m.metrics.SessionEnded()
	}

	m.logger.Info("attempt timed out",
		slog.String("handle", string(a.session.Handle)),
		slog.String("user_id", string(a.session.UserID)),
		slog.Int("level_id", int(a.session.LevelID)))
	return true
}

// SubmitOutcome applies an adjudicator result. Failed or malformed outcomes
// leave the session Playing. An accepted one is handed to the ledger exactly
// once at a time; the session is Won once the ledger answers, unless storage
// failed, in which case it stays Playing so the same attempt can be resubmitted.
func (m *Manager) SubmitOutcome(ctx context.Context, handle model.SessionHandle, outcome model.Outcome) (*model.UserAggregate, *model.BonusOffer, error) {
	a, err := m.get(handle)
	if err != nil {
		return nil, nil, err
	}

	a.mu.Lock()
	if a.session.State != model.SessionPlaying || a.crediting {
		a.mu.Unlock()
		return nil, nil, model.ErrSessionNotPlaying
	}
	if err := m.validate(a.session.LevelID, outcome); err != nil {
		a.mu.Unlock()
		return nil, nil, err
	}
	if !outcome.Accepted {
		a.mu.Unlock()
		return nil, nil, model.ErrAttemptFailed
	}
	a.crediting = true
	userID, levelID := a.session.UserID, a.session.LevelID
	a.mu.Unlock()

	updated, offer, err := m.ledger.ApplyCompletion(ctx, userID, levelID, outcome.PointsEarned, outcome.ElapsedSeconds)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.crediting = false

	if err != nil && !model.IsRejection(err) {
		m.logger.Warn("attempt win not credited, still playing",
			slog.String("handle", string(handle)),
			slog.String("user_id", string(userID)),
			slog.Int("level_id", int(levelID)),
			slog.String("error", err.Error()))
		return nil, nil, err
	}

	a.session.State = model.SessionWon
	a.session.EndedAt = m.clock.Now()
	if a.stop() {
		m.metrics.SessionEnded()
	}

	m.logger.Info("attempt won",
		slog.String("handle", string(handle)),
		slog.String("user_id", string(userID)),
		slog.Int("level_id", int(levelID)),
		slog.Int("elapsed_seconds", outcome.ElapsedSeconds))

	return updated, offer, err
}

// validate rejects outcomes no adjudicator for the level could produce
func (m *Manager) validate(levelID model.LevelID, outcome model.Outcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}
	level, err := model.GetLevel(levelID)
	if err != nil {
		return err
	}
	if outcome.PointsEarned > level.Points {
		return model.ErrInvalidOutcome
	}
	return nil
}

// SubmitInput runs the level's adjudicator on raw input, timing it from the
// session start, and submits the resulting outcome.
func (m *Manager) SubmitInput(ctx context.Context, handle model.SessionHandle, input string) (*model.UserAggregate, *model.BonusOffer, error) {
	a, err := m.get(handle)
	if err != nil {
		return nil, nil, err
	}

	a.mu.Lock()
	state := a.session.State
	levelID := a.session.LevelID
	elapsed := int(m.clock.Now().Sub(a.session.StartTime) / time.Second)
	a.mu.Unlock()

	if state != model.SessionPlaying {
		return nil, nil, model.ErrSessionNotPlaying
	}

	level, err := model.GetLevel(levelID)
	if err != nil {
		return nil, nil, err
	}
	outcome, err := m.adjudicators.Adjudicate(level, input, elapsed)
	if err != nil {
		return nil, nil, err
	}

	return m.SubmitOutcome(ctx, handle, outcome)
}

// Get returns a snapshot of a session
func (m *Manager) Get(handle model.SessionHandle) (*model.LevelSession, error) {
	a, err := m.get(handle)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.session
	return &s, nil
}

// Cancel discards a session without touching the ledger
func (m *Manager) Cancel(handle model.SessionHandle) error {
	m.mu.Lock()
	a, ok := m.sessions[handle]
	if ok {
		delete(m.sessions, handle)
	}
	m.mu.Unlock()
	if !ok {
		return model.ErrSessionNotFound
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop() {
		m.metrics.SessionEnded()
	}

	m.logger.Info("attempt cancelled",
		slog.String("handle", string(handle)),
		slog.String("user_id", string(a.session.UserID)))
	return nil
}

// CleanupFinished removes terminal sessions older than the retention period
func (m *Manager) CleanupFinished() int {
	cutoff := m.clock.Now().Add(-m.cfg.RetentionPeriod)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for handle, a := range m.sessions {
		a.mu.Lock()
		expired := a.session.State.IsTerminal() && !a.session.EndedAt.After(cutoff)
		a.mu.Unlock()
		if expired {
			delete(m.sessions, handle)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("finished attempts cleaned up", slog.Int("removed", removed))
	}
	return removed
}

// Count returns the number of tracked sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every countdown
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for handle, a := range m.sessions {
		a.mu.Lock()
		if a.stop() {
			m.metrics.SessionEnded()
		}
		a.mu.Unlock()
		delete(m.sessions, handle)
	}
}

func (m *Manager) get(handle model.SessionHandle) (*attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.sessions[handle]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return a, nil
}

// Interface for dependency injection
type ManagerInterface interface {
	StartAttempt(ctx context.Context, userID model.UserID, levelID model.LevelID) (*model.LevelSession, error)
	SubmitOutcome(ctx context.Context, handle model.SessionHandle, outcome model.Outcome) (*model.UserAggregate, *model.BonusOffer, error)
	SubmitInput(ctx context.Context, handle model.SessionHandle, input string) (*model.UserAggregate, *model.BonusOffer, error)
	Get(handle model.SessionHandle) (*model.LevelSession, error)
	Cancel(handle model.SessionHandle) error
}

var _ ManagerInterface = (*Manager)(nil)
