package mocks

import (
	"sync"

	"github.com/ghozitech/ledger/internal/model"
)

// MockPublisher records published events for test assertions
type MockPublisher struct {
	mu     sync.Mutex
	Events []model.Event
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event
func (p *MockPublisher) Publish(evt model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, evt)
}

// Published returns a copy of the recorded events
func (p *MockPublisher) Published() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]model.Event, len(p.Events))
	copy(result, p.Events)
	return result
}
