package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	Redis         RedisConfig         `yaml:"redis"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Backfill      BackfillConfig      `yaml:"backfill"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL        string `yaml:"url"`
	Enabled    bool   `yaml:"enabled"`
	QueueGroup string `yaml:"queue_group"`
}

// RedisConfig holds the leaderboard cache configuration. An empty URL disables the cache.
type RedisConfig struct {
	URL            string        `yaml:"url"`
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl"`
}

// IngestConfig controls replay ingestion.
type IngestConfig struct {
	ReplayDir        string `yaml:"replay_dir"`
	RatingAlgorithm  string `yaml:"rating_algorithm"`
	RetryFailedLive  bool   `yaml:"retry_failed_live"`
	RetryMaxAttempts int    `yaml:"retry_max_attempts"`
}

// BackfillConfig controls bulk ingestion.
type BackfillConfig struct {
	// FilesPerSecond throttles backfill; zero means unthrottled.
	FilesPerSecond float64 `yaml:"files_per_second"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig loads the configuration from a YAML file, then applies environment overrides.
// When the file does not exist the environment alone is used and DATABASE_URL is required.
func LoadConfig(filename string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	case os.IsNotExist(err):
		if os.Getenv("DATABASE_URL") == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable not set")
		}
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:        "nats://localhost:4222",
			QueueGroup: "snakebench",
		},
		Redis: RedisConfig{LeaderboardTTL: 5 * time.Minute},
		Ingest: IngestConfig{
			ReplayDir:        "./completed_games",
			RatingAlgorithm:  "trueskill",
			RetryFailedLive:  true,
			RetryMaxAttempts: 5,
		},
		Observability: ObservabilityConfig{
			MetricsAddress: ":9090",
			Environment:    "production",
			LogLevel:       "info",
		},
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_ENABLED"); v != "" {
		cfg.NATS.Enabled = v == "true"
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LEADERBOARD_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid LEADERBOARD_CACHE_TTL value: %w", err)
		}
		cfg.Redis.LeaderboardTTL = d
	}
	if v := os.Getenv("REPLAY_DIR"); v != "" {
		cfg.Ingest.ReplayDir = v
	}
	if v := os.Getenv("RATING_ALGORITHM"); v != "" {
		cfg.Ingest.RatingAlgorithm = v
	}
	if v := os.Getenv("RETRY_FAILED_LIVE"); v != "" {
		cfg.Ingest.RetryFailedLive = v == "true"
	}
	if v := os.Getenv("BACKFILL_FILES_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid BACKFILL_FILES_PER_SECOND value: %w", err)
		}
		cfg.Backfill.FilesPerSecond = f
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	return nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	switch c.Ingest.RatingAlgorithm {
	case "", "trueskill", "openskill":
	default:
		return fmt.Errorf("unknown rating algorithm %q", c.Ingest.RatingAlgorithm)
	}
	if c.Backfill.FilesPerSecond < 0 {
		return fmt.Errorf("backfill.files_per_second must not be negative")
	}
	return nil
}
