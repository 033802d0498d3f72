package crawler

import (
	"context"
	"time"

	"github.com/haneul/dcrawl/internal/backoff"
)

// backoffRetry runs fn under the crawler's configured backoff policy.
func backoffRetry[T any](c *Crawler, fn func() (T, error)) (T, error) {
	return backoff.Retry(c.backoffCfg, fn)
}

// sleepCtx sleeps for d or returns early with ctx.Err() if ctx is
// cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
