package duckdb

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// retryPolicy retries writes that lose a DuckDB optimistic-concurrency race.
// The backoff doubles from initial up to max.
type retryPolicy struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}

var defaultRetry = retryPolicy{
	attempts: 10,
	initial:  10 * time.Millisecond,
	max:      500 * time.Millisecond,
}

func (p retryPolicy) do(ctx context.Context, fn func() error) error {
	var lastErr error
	backoff := p.initial

	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, p.max)
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !isTransactionConflict(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("failed after %d retries: %w", p.attempts, lastErr)
}

func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "TransactionContext Error") ||
		strings.Contains(msg, "serialization")
}
