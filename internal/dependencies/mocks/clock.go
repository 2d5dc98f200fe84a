package mocks

import (
	"sync"
	"time"

	"github.com/ghozitech/ledger/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Tickers only fire when Tick is called.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	tickers     []*MockTicker
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// Advance moves the clock forward by the given duration
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set sets the clock to the given time
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CurrentTime = t
}

// NewTicker returns a ticker driven by Tick
func (c *MockClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTicker{ch: make(chan time.Time), done: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick advances the clock by d and delivers one tick to every live ticker.
// Delivery blocks until each ticker's consumer has received the tick.
func (c *MockClock) Tick(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	now := c.CurrentTime
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if !t.stopped() {
			live = append(live, t)
		}
	}
	c.tickers = live
	targets := make([]*MockTicker, len(live))
	copy(targets, live)
	c.mu.Unlock()

	for _, t := range targets {
		select {
		case t.ch <- now:
		case <-t.done:
		}
	}
}

// ActiveTickers returns the number of tickers that have not been stopped
func (c *MockClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, t := range c.tickers {
		if !t.stopped() {
			count++
		}
	}
	return count
}

// MockTicker is a manually driven ticker
type MockTicker struct {
	ch       chan time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// C returns the tick channel
func (t *MockTicker) C() <-chan time.Time {
	return t.ch
}

// Stop stops the ticker; pending Tick deliveries are abandoned
func (t *MockTicker) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *MockTicker) stopped() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
