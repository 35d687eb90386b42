package runner

import (
	"context"
	"sync"
	"time"
)

// RateLimiter выдерживает минимальный интервал между запросами всего
// пайплайна. Это строгий spacer, а не token bucket: мьютекс держится на
// время ожидания, поэтому два вызова не могут выйти ближе чем 1/R секунд.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		interval: time.Duration(float64(time.Second) / requestsPerSecond),
	}
}

// Wait blocks until the next send slot. The first caller passes through
// immediately. Cancelling the context releases the caller with its error.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.last.IsZero() {
		elapsed := time.Since(rl.last)
		if elapsed < rl.interval {
			timer := time.NewTimer(rl.interval - elapsed)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	rl.last = time.Now()
	return nil
}
