package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether one more request for key fits its window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Remaining(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type Config struct {
	Limit  int
	Window time.Duration
}
