package webclient

import (
	"context"
	"net/http"
	"time"
)

// AttemptFunc performs one try and reports the HTTP status it got.
type AttemptFunc func() (status int, body []byte, err error)

const maxDelay = 10 * time.Second

// DoWithRetry retries fn on transport errors, 429 and 5xx, doubling the delay
// between tries. The last attempt's result is returned as is.
func DoWithRetry(ctx context.Context, attempts int, initialDelay time.Duration, fn AttemptFunc) (int, []byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if initialDelay <= 0 {
		initialDelay = time.Second
	}
	delay := initialDelay
	for i := 0; ; i++ {
		status, body, err := fn()
		if !retryable(status, err) || i == attempts-1 {
			return status, body, err
		}
		if ctx.Err() != nil {
			return status, body, ctx.Err()
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return status, body, ctx.Err()
		case <-t.C:
		}
		if delay < maxDelay {
			delay *= 2
		}
	}
}

func retryable(status int, err error) bool {
	if err != nil {
		return true
	}
	return status == http.StatusTooManyRequests || status >= 500
}
