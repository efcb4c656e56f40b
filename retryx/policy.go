package retryx

import (
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
)

// Policy is the retry strategy applied by a transport to a failed round trip.
// A round trip is retried on network errors and on the listed statuses.
type Policy interface {
	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries() int
	// RetryOnStatus lists the HTTP statuses worth retrying.
	RetryOnStatus() []int
	// Backoff returns the wait before the given retry attempt, starting at 1.
	Backoff(attempt int) time.Duration
}

// DefaultRetryOnStatus are the gateway statuses a cluster returns while a node is unreachable.
var DefaultRetryOnStatus = []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}

type noRetry struct{}

// NoRetry never retries.
func NoRetry() Policy {
	return noRetry{}
}

func (noRetry) MaxRetries() int { return 0 }
func (noRetry) RetryOnStatus() []int { return nil }
func (noRetry) Backoff(int) time.Duration { return 0 }

type backoffPolicy struct {
	maxRetries int
	statuses   []int

	mu sync.Mutex
	bo backoff.BackOff
}

// ExponentialPolicy retries up to maxRetries times with an exponential wait.
// WithInterval and WithMaxInterval tune the wait, the elapsed time is never bounded.
func ExponentialPolicy(maxRetries int, opts ...RetryOption) Policy {
	rOpts := newRetryOptions(opts...)
	rOpts.maxElapsedTime = -1

	return &backoffPolicy{
		maxRetries: maxRetries,
		statuses:   DefaultRetryOnStatus,
		bo:         newExponentialBackOff(rOpts),
	}
}

// ConstantPolicy retries up to maxRetries times, waiting interval between attempts.
func ConstantPolicy(maxRetries int, interval time.Duration) Policy {
	return &backoffPolicy{
		maxRetries: maxRetries,
		statuses:   DefaultRetryOnStatus,
		bo:         backoff.NewConstantBackOff(interval),
	}
}

func (p *backoffPolicy) MaxRetries() int {
	return p.maxRetries
}

func (p *backoffPolicy) RetryOnStatus() []int {
	return p.statuses
}

func (p *backoffPolicy) Backoff(attempt int) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if attempt <= 1 {
		p.bo.Reset()
	}

	next := p.bo.NextBackOff()
	if next == backoff.Stop {
		return 0
	}

	return next
}
