package core

import "context"

// AttemptLimiter counts failed attempts per key inside a sliding window.
type AttemptLimiter interface {
	// Allow reports whether key may attempt again.
	Allow(ctx context.Context, key string) (bool, error)
	// Fail records a failed attempt for key.
	Fail(ctx context.Context, key string) error
	// Reset forgets the failed attempts of key.
	Reset(ctx context.Context, key string) error
}
