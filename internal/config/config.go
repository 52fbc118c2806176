// Package config loads the service configuration from the environment.
// A local .env file is honored when present, which keeps development
// setups close to the docker-compose defaults.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the backend needs at startup. Matching knobs are
// configurable because deployments disagree on how long a participant should
// wait before a random fallback pairing.
type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6380"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// PostgresDSN enables the room archive. Leave empty to run without a
	// database; matching works entirely in memory.
	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`

	// FallbackDelay is how long a participant waits for an interest match
	// before being paired with anyone available.
	FallbackDelay time.Duration `envconfig:"FALLBACK_DELAY" default:"5s"`
	// ThrottleInterval is the minimum spacing between accepted chat
	// messages from one sender.
	ThrottleInterval time.Duration `envconfig:"THROTTLE_INTERVAL" default:"400ms"`
	// SessionTTL bounds how long a saved session survives without a write.
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// Load reads the configuration, applying .env first if one exists.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
