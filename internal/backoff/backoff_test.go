package backoff

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTerminal = errors.New("terminal")
var errTransient = errors.New("transient")

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	cfg := Config{
		BaseDelay:          time.Millisecond,
		MaxCumulativeDelay: time.Second,
	}
	result, err := Retry(cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 3, calls)
}

func TestRetryShortCircuitsOnTerminalError(t *testing.T) {
	calls := 0
	cfg := Config{
		BaseDelay:          time.Millisecond,
		MaxCumulativeDelay: time.Second,
		IsTerminal:         func(err error) bool { return errors.Is(err, errTerminal) },
	}
	_, err := Retry(cfg, func() (int, error) {
		calls++
		return 0, errTerminal
	})
	require.ErrorIs(t, err, errTerminal)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsWhenBudgetExhausted(t *testing.T) {
	calls := 0
	cfg := Config{
		BaseDelay:          2 * time.Millisecond,
		MaxCumulativeDelay: 3 * time.Millisecond,
	}
	_, err := Retry(cfg, func() (int, error) {
		calls++
		return 0, errTransient
	})
	require.ErrorIs(t, err, errTransient)
	assert.GreaterOrEqual(t, calls, 2)
}
