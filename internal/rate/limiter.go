// Package rate implementa un fixed-window limiter para el endpoint de
// trigger, con backend en memoria (proceso único) o Redis (varias réplicas).
package rate

import (
	"context"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}
