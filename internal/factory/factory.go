package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/notify"
	notifyredis "github.com/mcoot/partyroom/internal/notify/redis"
	"github.com/mcoot/partyroom/internal/services/registry"
	"github.com/mcoot/partyroom/internal/web/stream"
)

// Notify backend constants
const (
	NotifyBackendMemory = "memory"
	NotifyBackendRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Registry    *registry.Registry
	HubManager  *stream.HubManager
	Broadcaster *stream.Broadcaster

	// Relay carries notifications from Redis to local streams.
	// Only set for the redis backend, and must be Run for streams to receive anything.
	Relay *notifyredis.Subscriber

	redisClient *redis.Client
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// RegistryConfig tunes the session registry (optional)
	// If zero value, defaults to registry.DefaultConfig()
	RegistryConfig registry.Config
	// NotifyBackend selects how notifications reach streams ("memory" or "redis")
	// If empty, defaults to "memory"
	NotifyBackend string
	// RedisConfig holds Redis connection settings (required if NotifyBackend is "redis")
	RedisConfig *notifyredis.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	registryCfg := cfg.RegistryConfig
	if registryCfg.ReapDelay == 0 {
		registryCfg.ReapDelay = registry.DefaultReapDelay
	}

	// Create the relay client based on backend
	var client *redis.Client
	channel := notifyredis.DefaultChannel
	backend := cfg.NotifyBackend
	if backend == "" {
		backend = NotifyBackendMemory
	}

	switch backend {
	case NotifyBackendMemory:
	case NotifyBackendRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when NotifyBackend is redis")
		}
		c, err := notifyredis.NewClient(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		client = c
		if cfg.RedisConfig.Channel != "" {
			channel = cfg.RedisConfig.Channel
		}
	default:
		return nil, errors.New("invalid NotifyBackend: must be 'memory' or 'redis'")
	}

	return newWithDependencies(clock.New(), random.New(), registryCfg, client, channel, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// A nil client selects in-process delivery.
func newWithDependencies(
	clk clock.Clock,
	rnd random.Random,
	registryCfg registry.Config,
	client *redis.Client,
	channel string,
	logger *slog.Logger,
) *App {
	hubManager := stream.NewHubManager(logger)
	broadcaster := stream.NewBroadcaster(hubManager, logger)

	var publisher notify.Publisher = broadcaster
	var relay *notifyredis.Subscriber
	if client != nil {
		publisher = notifyredis.NewPublisher(client, channel, logger)
		relay = notifyredis.NewSubscriber(client, channel, broadcaster, logger)
	}

	return &App{
		Clock:       clk,
		Random:      rnd,
		Registry:    registry.New(publisher, clk, rnd, registryCfg),
		HubManager:  hubManager,
		Broadcaster: broadcaster,
		Relay:       relay,
		redisClient: client,
	}
}

// Close ends every stream and releases external connections
func (a *App) Close() error {
	a.HubManager.Close()
	if a.redisClient != nil {
		return a.redisClient.Close()
	}
	return nil
}
