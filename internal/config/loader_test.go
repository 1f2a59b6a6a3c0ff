package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sportsmeet/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverMemory)
				convey.So(cfg.TableScores, convey.ShouldEqual, "Scores")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SPORTSMEET_ADDR", ":8080")
			_ = os.Setenv("SPORTSMEET_STORE_DRIVER", "Redis")
			_ = os.Setenv("SPORTSMEET_REDIS_DB", "3")
			_ = os.Setenv("SPORTSMEET_TOP_SCHOOLS", "3")
			_ = os.Setenv("SPORTSMEET_RATE_LIMIT_RPS", "2.5")
			_ = os.Setenv("SPORTSMEET_IDEMPOTENCY_TTL", "30s")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverRedis)
				convey.So(cfg.RedisDB, convey.ShouldEqual, 3)
				convey.So(cfg.TopSchools, convey.ShouldEqual, 3)
				convey.So(cfg.RateLimitRPS, convey.ShouldEqual, 2.5)
				convey.So(cfg.IdempotencyTTL, convey.ShouldEqual, 30*time.Second)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store_driver: dynamodb
dynamodb_endpoint: "http://localhost:8000"
dynamodb_consistent_reads: false
attendance_fan_out: 2
tie_break: first_seen
position_points:
  "1": 10
events:
  - id: SIDI01
    name: 100m
    category: track
  - id: RELAY
    name: 4x100m Relay
    category: team
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SPORTSMEET_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.StoreDriver, convey.ShouldEqual, config.DriverDynamoDB)
				convey.So(cfg.DynamoDBEndpoint, convey.ShouldEqual, "http://localhost:8000")
				convey.So(cfg.DynamoDBConsistentReads, convey.ShouldBeFalse)
				convey.So(cfg.AttendanceFanOut, convey.ShouldEqual, 2)
				convey.So(cfg.TieBreak, convey.ShouldEqual, config.TieBreakFirstSeen)
				convey.So(cfg.PositionPoints["1"], convey.ShouldEqual, 10)
				convey.So(cfg.Events, convey.ShouldHaveLength, 2)
				convey.So(cfg.Events[1].Category, convey.ShouldEqual, "team")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nrecent_winners: 20\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SPORTSMEET_CONFIG", tmpFile)
			_ = os.Setenv("SPORTSMEET_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")     // env
				convey.So(cfg.RecentWinners, convey.ShouldEqual, 20) // file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SPORTSMEET_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SPORTSMEET_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SPORTSMEET_MAX_BATCH_ITEMS", "lots")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the batch ceiling is raised past the store limit", func() {
			_ = os.Setenv("SPORTSMEET_MAX_BATCH_ITEMS", "100")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestLoadDotEnv(t *testing.T) {
	convey.Convey("Given a .env file", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		dir := t.TempDir()
		path := filepath.Join(dir, ".env")
		convey.So(os.WriteFile(path, []byte("SPORTSMEET_ADDR=:7070\n"), 0o600), convey.ShouldBeNil)

		convey.Convey("Then its values feed the env layer", func() {
			convey.So(config.LoadDotEnv(path, filepath.Join(dir, "missing.env")), convey.ShouldBeNil)
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
		})

		convey.Convey("Then variables already set are not overridden", func() {
			_ = os.Setenv("SPORTSMEET_ADDR", ":6060")
			convey.So(config.LoadDotEnv(path), convey.ShouldBeNil)
			convey.So(os.Getenv("SPORTSMEET_ADDR"), convey.ShouldEqual, ":6060")
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SPORTSMEET_CONFIG",
		"SPORTSMEET_ADDR",
		"SPORTSMEET_STORE_DRIVER",
		"SPORTSMEET_REDIS_DB",
		"SPORTSMEET_TOP_SCHOOLS",
		"SPORTSMEET_RATE_LIMIT_RPS",
		"SPORTSMEET_IDEMPOTENCY_TTL",
		"SPORTSMEET_MAX_BATCH_ITEMS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "sportsmeet-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
