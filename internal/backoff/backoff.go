// Package backoff implements the bounded linear-growth retry kernel
// shared by the crawler and the directory's rank ingestion: any
// fallible operation can be wrapped without the call site special
// casing which errors are worth retrying.
package backoff

import (
	"time"

	"go.uber.org/zap"
)

// Config parameterizes a single retried operation. BaseDelay is the
// per-attempt growth unit `d`; MaxCumulativeDelay is the budget `D`
// the kernel stops waiting past. IsTerminal, if set, short-circuits
// the retry loop without spending any delay.
type Config struct {
	BaseDelay          time.Duration
	MaxCumulativeDelay time.Duration
	IsTerminal         func(error) bool
	Logger             *zap.Logger
}

// Retry runs fn, retrying on non-terminal errors with linearly growing
// delay capped by the remaining budget, until it succeeds, hits a
// terminal error, or exhausts the cumulative delay budget.
func Retry[T any](cfg Config, fn func() (T, error)) (T, error) {
	var (
		zero      T
		attempt   = 0
		cumulative time.Duration
	)
	for {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		attempt++
		if cfg.IsTerminal != nil && cfg.IsTerminal(err) {
			return zero, err
		}
		if cumulative >= cfg.MaxCumulativeDelay {
			return zero, err
		}
		wait := time.Duration(attempt) * cfg.BaseDelay
		remaining := cfg.MaxCumulativeDelay - cumulative
		if wait > remaining {
			wait = remaining
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("retrying after error",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}
		time.Sleep(wait)
		cumulative += wait
	}
}

// RetryVoid is Retry for operations with no return value.
func RetryVoid(cfg Config, fn func() error) error {
	_, err := Retry(cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
