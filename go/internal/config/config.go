package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/playoffs/go/internal/clock"
	"github.com/mcdev12/playoffs/go/internal/dbconfig"
)

type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Contest  ContestConfig   `yaml:"contest"`
	NATS     NATSConfig      `yaml:"nats"`
	Outbox   OutboxConfig    `yaml:"outbox"`
	Log      LogConfig       `yaml:"log"`
	Database dbconfig.Config `yaml:"-"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	TickConcurrency int           `yaml:"tick_concurrency"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type ContestConfig struct {
	StartCountdown time.Duration `yaml:"start_countdown"`
	SettleGrace    time.Duration `yaml:"settle_grace"`
	PenaltyHold    time.Duration `yaml:"penalty_hold"`
}

// Clock converts the contest timings for the clock package.
func (c ContestConfig) Clock() clock.Config {
	return clock.Config{
		StartCountdown: c.StartCountdown,
		SettleGrace:    c.SettleGrace,
		PenaltyHold:    c.PenaltyHold,
	}
}

type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	ConsumerName  string `yaml:"consumer_name"`
}

type OutboxConfig struct {
	FallbackInterval time.Duration `yaml:"fallback_interval"`
	BatchSize        int           `yaml:"batch_size"`
	HealthPort       string        `yaml:"health_port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file or env overrides it.
func Default() Config {
	contest := clock.DefaultConfig()
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			AllowedOrigins:  []string{"*"},
			TickConcurrency: 8,
			AutoMigrate:     true,
		},
		Contest: ContestConfig{
			StartCountdown: contest.StartCountdown,
			SettleGrace:    contest.SettleGrace,
			PenaltyHold:    contest.PenaltyHold,
		},
		NATS: NATSConfig{
			Enabled:       true,
			URL:           "nats://localhost:4222",
			StreamName:    "PLAYOFFS_EVENTS",
			SubjectPrefix: "playoffs.events",
			ConsumerName:  "playoffs-gateway",
		},
		Outbox: OutboxConfig{
			FallbackInterval: 30 * time.Second,
			BatchSize:        100,
			HealthPort:       "8082",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path if it
// exists, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// optional
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(&cfg)
	cfg.Database = dbconfig.NewConfigFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.TickConcurrency = getEnvAsInt("TICK_CONCURRENCY", cfg.Server.TickConcurrency)
	cfg.Server.AutoMigrate = getEnvAsBool("AUTO_MIGRATE", cfg.Server.AutoMigrate)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	cfg.Contest.PenaltyHold = getEnvAsDuration("PENALTY_HOLD", cfg.Contest.PenaltyHold)

	cfg.NATS.Enabled = getEnvAsBool("NATS_ENABLED", cfg.NATS.Enabled)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)

	cfg.Outbox.FallbackInterval = getEnvAsDuration("FALLBACK_INTERVAL", cfg.Outbox.FallbackInterval)
	cfg.Outbox.HealthPort = getEnv("OUTBOX_HEALTH_PORT", cfg.Outbox.HealthPort)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func (c *Config) validate() error {
	if c.Contest.StartCountdown < 0 || c.Contest.SettleGrace < 0 || c.Contest.PenaltyHold <= 0 {
		return fmt.Errorf("contest timings must be non-negative and penalty_hold positive")
	}
	if c.Server.TickConcurrency <= 0 {
		return fmt.Errorf("tick_concurrency must be positive")
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox batch_size must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
