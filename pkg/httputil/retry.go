// Package httputil provides retry and response-classification helpers shared
// by the vulnerability source and registry clients.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 429/5xx responses) with this type
// so that [Retry] knows to attempt the operation again. RetryAfter carries a
// server-requested delay (from a Retry-After header) and overrides the normal
// backoff for the next attempt when non-zero.
type RetryableError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// MaxBackoff caps the delay between retry attempts, including delays
// requested via Retry-After.
const MaxBackoff = 30 * time.Second

// Retry executes fn up to attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. The delay doubles after each failed attempt and is
// capped at [MaxBackoff]. A RetryAfter carried by the error takes precedence
// over the computed backoff. Returns the last error if all attempts fail,
// or ctx.Err() if cancelled while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}

		if i < attempts-1 {
			wait := min(delay, MaxBackoff)
			if re.RetryAfter > 0 {
				wait = min(re.RetryAfter, MaxBackoff)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff is a convenience wrapper around [Retry] with sensible
// defaults: 3 attempts with 1 second initial delay (doubling each retry).
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}

// StatusRetryable reports whether an HTTP status code represents a transient
// condition worth retrying: rate limiting (429) and common transient server
// errors (500, 502, 503, 504). Other 4xx codes are permanent.
func StatusRetryable(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// CheckResponse classifies an HTTP response into nil (2xx), a retryable
// error, or a permanent error. For retryable statuses the returned error is a
// [RetryableError]; a Retry-After header, when present, is attached so the
// retry loop can honor the server's pacing.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if StatusRetryable(resp.StatusCode) {
		return &RetryableError{
			Err:        fmt.Errorf("transient status %d from %s", resp.StatusCode, resp.Request.URL.Host),
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return fmt.Errorf("status %d from %s", resp.StatusCode, resp.Request.URL.Host)
}

// ParseRetryAfter parses a Retry-After header value, accepting either a
// delay in seconds or an HTTP date. Returns 0 for empty, malformed, or
// already-elapsed values.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
