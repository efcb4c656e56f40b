package retryx

import "time"

type retryOptions struct {
	retryCount      int
	unlimited       bool
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
}

type RetryOption func(*retryOptions)

func WithRetryCount(count int) RetryOption {
	return func(ro *retryOptions) {
		ro.retryCount = count
	}
}

// WithoutRetryLimit retries until the backoff gives up or the context is done.
func WithoutRetryLimit() RetryOption {
	return func(ro *retryOptions) {
		ro.unlimited = true
	}
}

func WithInterval(interval time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.initialInterval = interval
	}
}

func WithMaxInterval(interval time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.maxInterval = interval
	}
}

// WithMaxElapsedTime bounds the total time spent retrying. A negative value removes the bound.
func WithMaxElapsedTime(d time.Duration) RetryOption {
	return func(ro *retryOptions) {
		ro.maxElapsedTime = d
	}
}

func newRetryOptions(opts ...RetryOption) *retryOptions {
	rOpts := &retryOptions{}
	for _, opt := range opts {
		opt(rOpts)
	}
	return rOpts
}
