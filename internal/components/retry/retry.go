// Package retry is a bounded retry-with-backoff combinator. Bounds are always passed
// explicitly so every call site states how often and how long it is willing to wait.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy describes how many times an operation is attempted in total and how long to
// wait between attempts.
type Policy struct {
	Attempts int
	Delay    time.Duration
	// OnRetry is called before waiting for the next attempt, it can be nil.
	OnRetry func(attempt int, err error)
}

// Predicate decides if an error is worth another attempt.
type Predicate func(err error) bool

// On retries only errors that match one of the given targets through errors.Is.
func On(targets ...error) Predicate {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

// Do runs op until it succeeds, returns a non-retryable error or runs out of attempts.
// The error of the last attempt is returned unchanged.
func Do(ctx context.Context, p Policy, retryable Predicate, op func(ctx context.Context, attempt int) error) error {
	_, err := Value(ctx, p, retryable, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, op(ctx, attempt)
	})
	return err
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, p Policy, retryable Predicate, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var out T
		out, err = op(ctx, attempt)
		if err == nil {
			return out, nil
		}
		if retryable == nil || !retryable(err) || attempt == attempts {
			return zero, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if serr := sleepCtx(ctx, p.Delay); serr != nil {
			return zero, fmt.Errorf("retry: context cancelled during backoff: %w", errors.Join(serr, err))
		}
	}
	return zero, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
