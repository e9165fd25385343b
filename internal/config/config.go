// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mcoot/partyroom/internal/api"
	"github.com/mcoot/partyroom/internal/factory"
	notifyredis "github.com/mcoot/partyroom/internal/notify/redis"
	"github.com/mcoot/partyroom/internal/services/registry"
)

// Config holds all server settings
type Config struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// NotifyBackend is "memory" for a single process or "redis" to fan out across processes
	NotifyBackend string `env:"NOTIFY_BACKEND" envDefault:"memory"`
	RedisURL      string `env:"REDIS_URL"`
	RedisChannel  string `env:"REDIS_CHANNEL" envDefault:"partyroom:events"`

	ReapDelay          time.Duration `env:"REAP_DELAY" envDefault:"20s"`
	BindRecoveryOrigin bool          `env:"BIND_RECOVERY_ORIGIN" envDefault:"false"`
	TrustProxyHeaders  bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads the configuration from the process environment
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other
func (c Config) Validate() error {
	switch c.NotifyBackend {
	case factory.NotifyBackendMemory:
	case factory.NotifyBackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when NOTIFY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_BACKEND %q", c.NotifyBackend)
	}
	if c.ReapDelay <= 0 {
		return fmt.Errorf("REAP_DELAY must be positive, got %s", c.ReapDelay)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level named by LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}

// Factory returns the application factory settings
func (c Config) Factory(logger *slog.Logger) factory.Config {
	cfg := factory.Config{
		Logger:        logger,
		NotifyBackend: c.NotifyBackend,
		RegistryConfig: registry.Config{
			ReapDelay:          c.ReapDelay,
			BindRecoveryOrigin: c.BindRecoveryOrigin,
		},
	}
	if c.NotifyBackend == factory.NotifyBackendRedis {
		redisCfg := notifyredis.DefaultConfig()
		redisCfg.URL = c.RedisURL
		redisCfg.Channel = c.RedisChannel
		cfg.RedisConfig = &redisCfg
	}
	return cfg
}

// Server returns the HTTP server settings
func (c Config) Server() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.Host = c.Host
	cfg.Port = c.Port
	cfg.ShutdownTimeout = c.ShutdownTimeout
	return cfg
}
