package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

type counter struct {
	attempts  int
	expiresAt time.Time
}

type memoryLimiter struct {
	mu          sync.Mutex
	counters    map[string]counter
	maxAttempts int
	window      time.Duration
	nowFunc     func() time.Time // mockable
}

// NewMemoryLimiter keeps attempts in process memory; used without redis and in tests.
func NewMemoryLimiter(conf *core.Config) core.AttemptLimiter {
	return newMemoryLimiter(conf.Login.MaxAttempts, conf.Login.Window)
}

func newMemoryLimiter(maxAttempts int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		counters:    make(map[string]counter),
		maxAttempts: maxAttempts,
		window:      window,
		nowFunc:     time.Now,
	}
}

func (l *memoryLimiter) get(key string) counter {
	c, ok := l.counters[key]
	if ok && !l.nowFunc().Before(c.expiresAt) {
		delete(l.counters, key)
		return counter{}
	}
	return c
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get(key).attempts < l.maxAttempts, nil
}

func (l *memoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.get(key)
	c.attempts++
	c.expiresAt = l.nowFunc().Add(l.window)
	l.counters[key] = c
	return nil
}

func (l *memoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counters, key)
	return nil
}
