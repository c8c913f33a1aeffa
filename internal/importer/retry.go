package importer

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
)

// DefaultMaxAttempts is how often a row handler runs before its failure is
// recorded.
const DefaultMaxAttempts = 5

// retry runs fn until it succeeds, returns a non-retryable failure, or
// maxAttempts runs have failed. Attempts follow each other without delay.
// It returns the number of attempts made and the last error.
func retry(ctx context.Context, maxAttempts int, fn func() error) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempts := 0
	op := func() error {
		attempts++
		err := protect(fn)
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(maxAttempts-1)), ctx)
	err := backoff.Retry(op, policy)
	return attempts, err
}

// protect calls fn and turns a panic into an error.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
