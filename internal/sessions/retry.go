package sessions

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/folio/internal/hostclient"
)

// IsRetryable checks if a delivery error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *hostclient.RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter, doubling
// from base and capped at 30 times base.
func Backoff(attempt int, base time.Duration) time.Duration {
	d := base << uint(attempt)
	if limit := 30 * base; d > limit || d <= 0 {
		d = limit
	}
	jitter := time.Duration(rand.Int64N(int64(d)/2 + 1))
	return d + jitter
}

const MaxRetries = 3
