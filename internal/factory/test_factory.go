package factory

import (
	"time"

	"github.com/ghozitech/ledger/internal/dependencies/mocks"
	"github.com/ghozitech/ledger/internal/metrics"
	"github.com/ghozitech/ledger/internal/storage"
	"github.com/ghozitech/ledger/internal/storage/memory"
	"github.com/ghozitech/ledger/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App on in-memory storage with mocked dependencies
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New(), Config{})
}

// NewTestAppWithStorage creates an App on the given storage with mocked dependencies
func NewTestAppWithStorage(store storage.Storage, cfg Config) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	logger := cfg.Logger
	if logger == nil {
		logger = testutil.NopLogger()
	}

	app := newWithDependencies(store, mockClock, mockRandom, metrics.New(), cfg, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
