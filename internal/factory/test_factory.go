package factory

import (
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partyroom/internal/dependencies/mocks"
	notifyredis "github.com/mcoot/partyroom/internal/notify/redis"
	"github.com/mcoot/partyroom/internal/services/registry"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	return newTestApp(nil)
}

// NewTestAppWithRedis creates a test App that relays notifications through the given client
func NewTestAppWithRedis(client *redis.Client) *TestApp {
	return newTestApp(client)
}

func newTestApp(client *redis.Client) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	app := newWithDependencies(mockClock, mockRandom, registry.DefaultConfig(), client, notifyredis.DefaultChannel, logger)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
