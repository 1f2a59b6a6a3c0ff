// Package dedupe remembers the idempotency keys of accepted requests so a
// retried submission is recognised instead of written twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Defaults for NewGuard.
const (
	DefaultMaxKeys = 10000
	DefaultTTL     = 10 * time.Minute
)

// Guard claims keys at most once within a window.
type Guard interface {
	// Claim records key and reports whether it was already held.
	Claim(ctx context.Context, key string) bool

	// Release forgets key so a failed request can be retried under it.
	Release(ctx context.Context, key string)

	Size() int
}

type claim struct {
	key string
	at  time.Time
}

type memoryGuard struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List // oldest claim at the front
	maxKeys int
	ttl     time.Duration
	now     func() time.Time
}

// NewGuard creates an in-memory Guard. When full, the oldest claim is dropped.
func NewGuard(opts ...Option) Guard {
	g := &memoryGuard{
		keys:    make(map[string]*list.Element),
		order:   list.New(),
		maxKeys: DefaultMaxKeys,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *memoryGuard) Claim(_ context.Context, key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.expire(now)
	if _, held := g.keys[key]; held {
		return true
	}
	if g.maxKeys > 0 && g.order.Len() >= g.maxKeys {
		g.remove(g.order.Front())
	}
	g.keys[key] = g.order.PushBack(claim{key: key, at: now})
	return false
}

func (g *memoryGuard) Release(_ context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if el, held := g.keys[key]; held {
		g.remove(el)
	}
}

func (g *memoryGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expire(g.now())
	return g.order.Len()
}

// expire drops claims older than the ttl. Callers hold g.mu.
func (g *memoryGuard) expire(now time.Time) {
	if g.ttl <= 0 {
		return
	}
	for el := g.order.Front(); el != nil; el = g.order.Front() {
		if now.Sub(el.Value.(claim).at) < g.ttl {
			return
		}
		g.remove(el)
	}
}

func (g *memoryGuard) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(g.keys, el.Value.(claim).key)
	g.order.Remove(el)
}
