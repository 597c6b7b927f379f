package rate

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter: fixed window en memoria sobre go-cache. Suficiente para un
// notificador de una sola réplica; con varias réplicas usar RedisLimiter.
type MemoryLimiter struct {
	c      *gocache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		c:      gocache.New(window, window),
		max:    int64(max),
		window: window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	winStart := l.now().UTC().Truncate(l.window)
	cacheKey := fmt.Sprintf("%s:%d", key, winStart.Unix())

	// Add es no-op si la key ya existe; el TTL cubre exactamente la ventana.
	_ = l.c.Add(cacheKey, int64(0), l.window)
	hits, err := l.c.IncrementInt64(cacheKey, 1)
	if err != nil {
		// La entrada expiró entre Add e Increment: arrancar ventana nueva.
		l.c.Set(cacheKey, int64(1), l.window)
		hits = 1
	}

	allowed := hits <= l.max
	remaining := l.max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = winStart.Add(l.window).Sub(l.now().UTC())
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res, nil
}
