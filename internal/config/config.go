// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and SPORTSMEET_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"
)

// Supported scoreboard tie-break policies.
const (
	TieBreakAlphabetical = "alphabetical"
	TieBreakFirstSeen    = "first_seen"
)

// CatalogEvent is a configured entry of the static event catalog.
type CatalogEvent struct {
	ID       string `koanf:"id"`
	Name     string `koanf:"name"`
	Category string `koanf:"category"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreDriver selects the document store backend: memory, redis or dynamodb.
	StoreDriver string `koanf:"store_driver"`

	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// DynamoDBRegion and DynamoDBEndpoint configure the AWS client. An empty
	// endpoint uses the regional AWS endpoint.
	DynamoDBRegion   string `koanf:"dynamodb_region"`
	DynamoDBEndpoint string `koanf:"dynamodb_endpoint"`

	// DynamoDBConsistentReads makes reads observe every acknowledged write.
	DynamoDBConsistentReads bool `koanf:"dynamodb_consistent_reads"`

	TableScores        string `koanf:"table_scores"`
	TableParticipants  string `koanf:"table_participants"`
	TableRegistrations string `koanf:"table_registrations"`
	TableSchools       string `koanf:"table_schools"`

	// MaxBatchItems is the per-submission write ceiling (store batch limit).
	MaxBatchItems int `koanf:"max_batch_items"`

	// TopSchools and RecentWinners size the scoreboard lists.
	TopSchools    int `koanf:"top_schools"`
	RecentWinners int `koanf:"recent_winners"`

	// TieBreak orders schools with equal totals: alphabetical or first_seen.
	TieBreak string `koanf:"tie_break"`

	// PositionPoints maps finishing positions ("1", "2", ...) to default points.
	PositionPoints map[string]int `koanf:"position_points"`

	// RateLimitRPS and RateLimitBurst throttle write routes per client IP.
	// A zero RPS disables the limiter.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// IdempotencyTTL is how long an Idempotency-Key on POST /score is
	// remembered. Zero disables the check.
	IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`

	// AttendanceFanOut bounds concurrent writes when one attendance mark
	// touches several duplicate participant records.
	AttendanceFanOut int `koanf:"attendance_fan_out"`

	// Events replaces the built-in event catalog when non-empty.
	Events []CatalogEvent `koanf:"events"`
}

// New creates a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		StoreDriver:             DriverMemory,
		RedisAddr:               "localhost:6379",
		RedisPrefix:             "sportsmeet",
		DynamoDBRegion:          "ap-south-1",
		DynamoDBConsistentReads: true,
		TableScores:             "Scores",
		TableParticipants:       "Users",
		TableRegistrations:      "EventRegistrations",
		TableSchools:            "Schools",
		MaxBatchItems:           25,
		TopSchools:              5,
		RecentWinners:           10,
		TieBreak:                TieBreakAlphabetical,
		PositionPoints: map[string]int{
			"1": 5,
			"2": 3,
			"3": 1,
		},
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		IdempotencyTTL:   10 * time.Minute,
		AttendanceFanOut: 8,
	}
}

// Validate checks field combinations that Load cannot express through types.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.StoreDriver) {
	case DriverMemory, DriverRedis, DriverDynamoDB:
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.MaxBatchItems <= 0 || c.MaxBatchItems > 25 {
		return fmt.Errorf("%w: max_batch_items must be in 1..25, got %d", ErrInvalidConfig, c.MaxBatchItems)
	}
	if c.TopSchools <= 0 || c.RecentWinners <= 0 {
		return fmt.Errorf("%w: top_schools and recent_winners must be positive", ErrInvalidConfig)
	}
	switch c.TieBreak {
	case TieBreakAlphabetical, TieBreakFirstSeen:
	default:
		return fmt.Errorf("%w: unknown tie_break %q", ErrInvalidConfig, c.TieBreak)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("%w: rate_limit_rps must not be negative", ErrInvalidConfig)
	}
	if c.IdempotencyTTL < 0 {
		return fmt.Errorf("%w: idempotency_ttl must not be negative", ErrInvalidConfig)
	}
	if c.AttendanceFanOut <= 0 {
		return fmt.Errorf("%w: attendance_fan_out must be positive", ErrInvalidConfig)
	}
	for _, e := range c.Events {
		if strings.TrimSpace(e.ID) == "" || strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: catalog events need id and name", ErrInvalidConfig)
		}
	}
	return nil
}
