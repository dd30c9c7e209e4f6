package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
)

const (
	defaultPort            = ":8080"
	defaultOrigin          = "http://localhost:8080"
	defaultMaxMessageSize  = 4096
	defaultSendQueueSize   = 256
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
// A Burst of zero disables the limiter.
type RateLimitConfig struct {
	Burst          int           `envconfig:"BURST" default:"0"`
	RefillInterval time.Duration `envconfig:"REFILL_INTERVAL" default:"1s"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"`
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string          `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins  []string        `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	MaxMessageSize  int64           `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	SendQueueSize   int             `envconfig:"SEND_QUEUE_SIZE" default:"256"`
	ShutdownTimeout time.Duration   `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	RateLimit       RateLimitConfig `envconfig:"RATE_LIMIT"`
	Log             LogConfig       `envconfig:"LOG"`
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	return &Config{
		Port:            defaultPort,
		AllowedOrigins:  []string{defaultOrigin},
		MaxMessageSize:  defaultMaxMessageSize,
		SendQueueSize:   defaultSendQueueSize,
		ShutdownTimeout: defaultShutdownTimeout,
		RateLimit: RateLimitConfig{
			RefillInterval: defaultRefillInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.Sanitize()
	return &cfg, nil
}

// Sanitize replaces invalid values with defaults and normalises origins.
func (cfg *Config) Sanitize() {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = defaultSendQueueSize
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.RateLimit.Burst < 0 {
		cfg.RateLimit.Burst = 0
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRefillInterval
	}

	// Invalid entries are kept so the origin policy can report them once the
	// configured logger is in place.
	cfg.AllowedOrigins = lo.FilterMap(cfg.AllowedOrigins, func(origin string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(origin)
		if normalized, ok := normalizeOrigin(trimmed); ok {
			return normalized, true
		}
		return trimmed, trimmed != ""
	})
}
