package repository

import (
	"context"
	"fmt"
	"strings"
)

// Settings selects and configures a backend.
type Settings struct {
	Driver string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	DynamoRegion          string
	DynamoEndpoint        string
	DynamoConsistentReads bool
}

// Open connects the backend named by s.Driver.
func Open(ctx context.Context, s Settings) (Store, error) {
	switch strings.ToLower(s.Driver) {
	case "", driverMemory:
		return NewMemoryStore(), nil
	case driverRedis:
		return OpenRedis(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB, WithKeyPrefix(s.RedisPrefix))
	case driverDynamo:
		return OpenDynamo(ctx, s.DynamoRegion, s.DynamoEndpoint, WithConsistentReads(s.DynamoConsistentReads))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
	}
}
