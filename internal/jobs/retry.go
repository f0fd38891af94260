package jobs

import (
	"errors"
	"time"
)

const MaxAttempts = 3

// RetryDelay backs off 2s, 4s, 8s... for the given zero-based attempt.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		attempt = 5
	}
	return (2 * time.Second) << attempt
}

// ShouldRetry reports whether a failed delivery goes to the retry queue
// rather than the dead-letter queue.
func ShouldRetry(err error, attempt int) bool {
	if err == nil || errors.Is(err, ErrPermanent) {
		return false
	}
	return attempt+1 < MaxAttempts
}
