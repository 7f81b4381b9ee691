package llm

import "time"

// RetryConfig holds retry configuration for provider requests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per invocation.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible retry defaults for provider requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// ShouldRetry reports whether a failed attempt should be retried.
// Only transient errors are retried, and never once the attempt
// ceiling has been reached.
func (c RetryConfig) ShouldRetry(err error, attemptsSoFar int) bool {
	if attemptsSoFar >= c.MaxAttempts {
		return false
	}
	return IsTransient(err)
}
