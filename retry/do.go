package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Notify is called before each retry with the failed attempt's error, its
// 1-based attempt number and the delay before the next attempt.
type Notify func(err error, attempt int, delay time.Duration)

// Do runs op under p until op succeeds, p declines to retry, the backoff
// schedule is exhausted or ctx ends. op receives the 1-based attempt number.
//
// The error of the last attempt is returned as-is, without wrapping, so
// callers see the provider's own error once retries run out. If ctx ends
// while waiting between attempts, ctx.Err() is returned.
func Do(ctx context.Context, p Policy, op func(attempt int) error, notify Notify) error {
	attempt := 0
	b := backoff.WithContext(p.BackOff(), ctx)

	return backoff.RetryNotify(func() error {
		attempt++
		err := op(attempt)
		if err != nil && !p.IsErrorRetryable(err, attempt) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, delay time.Duration) {
		if notify != nil {
			notify(err, attempt, delay)
		}
	})
}
