package comment

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

var (
	retryInitialInterval = 20 * time.Millisecond
	retryMaxInterval     = 500 * time.Millisecond
	retryMaxElapsed      = 5 * time.Second
	retryMaxAttempts     = uint64(5)
)

// isRetryable reports storage errors caused by a concurrent writer: a
// unique-index race on the vote row, or a busy or locked database.
func isRetryable(err error) bool {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch {
	case serr.Code == sqlite3.ErrBusy, serr.Code == sqlite3.ErrLocked:
		return true
	case serr.ExtendedCode == sqlite3.ErrConstraintUnique:
		return true
	}
	return false
}

// withRetry runs op, retrying with exponential backoff while it fails with
// a retryable error. Other errors are returned immediately.
func withRetry(ctx context.Context, op func() error) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(retryInitialInterval),
		backoff.WithMaxInterval(retryMaxInterval),
		backoff.WithMaxElapsedTime(retryMaxElapsed),
	), retryMaxAttempts)

	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
