package dedupe

import "time"

// Option configures NewGuard.
type Option func(*memoryGuard)

// WithMaxKeys bounds the number of remembered keys. Zero or less is unbounded.
func WithMaxKeys(n int) Option {
	return func(g *memoryGuard) {
		g.maxKeys = n
	}
}

// WithTTL sets how long a claim is held. Zero or less keeps claims until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(g *memoryGuard) {
		g.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *memoryGuard) {
		if now != nil {
			g.now = now
		}
	}
}
