package retryx

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultMaxInterval    = 2 * time.Second
	DefaultMaxElapsedTime = 5 * time.Second
	DefaultMaxRetries     = 3
)

// ConstantRetry executes the provided function `fn` with a constant retry interval.
//
// The retry interval defaults to `DefaultInterval` unless overridden by the `WithInterval`
// option. If more advanced control over the retry behavior is required, consider using the
// `backoff` package directly.
func ConstantRetry(fn func() error, opts ...RetryOption) error {
	rOpts := newRetryOptions(opts...)

	duration := DefaultInterval
	if rOpts.initialInterval > 0 {
		duration = rOpts.initialInterval
	}

	bc := backoff.NewConstantBackOff(duration)
	bc.Reset()

	return retry(fn, bc, rOpts)
}

// ExponentialRetry executes the provided function `fn` with an exponential backoff retry strategy.
//
// The retry interval starts at `DefaultInterval` unless overridden by the `WithInterval` option.
// The maximum interval between retries starts at `DefaultMaxInterval` unless overridden by the `WithMaxInterval` option.
// The maximum elapsed time defaults to `DefaultMaxElapsedTime` unless overridden by the `WithMaxElapsedTime`option.
func ExponentialRetry(fn func() error, opts ...RetryOption) error {
	rOpts := newRetryOptions(opts...)
	return retry(fn, newExponentialBackOff(rOpts), rOpts)
}

// ExponentialRetryContext is ExponentialRetry stopping as soon as ctx is done.
// When ctx ends the retries, the context error is returned.
func ExponentialRetryContext(ctx context.Context, fn func(context.Context) error, opts ...RetryOption) error {
	rOpts := newRetryOptions(opts...)
	bo := backoff.WithContext(newExponentialBackOff(rOpts), ctx)

	err := retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		return fn(ctx)
	}, bo, rOpts)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	return err
}

func newExponentialBackOff(rOpts *retryOptions) *backoff.ExponentialBackOff {
	duration := DefaultInterval
	maxInterval := DefaultMaxInterval
	maxElapsedTime := DefaultMaxElapsedTime
	if rOpts.initialInterval > 0 {
		duration = rOpts.initialInterval
	}
	if rOpts.maxInterval > 0 {
		maxInterval = rOpts.maxInterval
	}
	if rOpts.maxElapsedTime > 0 {
		maxElapsedTime = rOpts.maxElapsedTime
	} else if rOpts.maxElapsedTime < 0 {
		maxElapsedTime = 0
	}

	bc := backoff.NewExponentialBackOff()
	bc.InitialInterval = duration
	bc.MaxInterval = maxInterval
	bc.MaxElapsedTime = maxElapsedTime
	bc.Reset()

	return bc
}

func retry(fn func() error, bo backoff.BackOff, rOpts *retryOptions) error {
	maxRetryCount := DefaultMaxRetries
	if rOpts.retryCount > 0 {
		maxRetryCount = rOpts.retryCount
	}

	retries := 0
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}

		retries++
		if !rOpts.unlimited && retries >= maxRetryCount {
			return backoff.Permanent(err)
		}

		return err
	}, bo)
}
