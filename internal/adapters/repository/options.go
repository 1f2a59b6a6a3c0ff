package repository

import "time"

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for latency metrics.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every Redis key, "sportsmeet" by default.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// DynamoOption configures a DynamoStore.
type DynamoOption func(*DynamoStore)

// WithConsistentReads makes Get, Query and Scan strongly consistent.
func WithConsistentReads(enabled bool) DynamoOption {
	return func(s *DynamoStore) {
		s.consistent = enabled
	}
}
