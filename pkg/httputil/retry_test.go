package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &RetryableError{Err: errors.New("transient")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("error = %v, want permanent", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return &RetryableError{Err: errors.New("still broken")}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Minute, func() error {
		return &RetryableError{Err: errors.New("transient")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestStatusRetryable(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusNotImplemented, false},
	}
	for _, tt := range tests {
		if got := StatusRetryable(tt.code); got != tt.want {
			t.Errorf("StatusRetryable(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestCheckResponse(t *testing.T) {
	req := &http.Request{URL: &url.URL{Host: "api.example.com"}}

	resp := &http.Response{StatusCode: 200, Request: req, Header: http.Header{}}
	if err := CheckResponse(resp); err != nil {
		t.Errorf("200 should be nil, got %v", err)
	}

	resp = &http.Response{StatusCode: 404, Request: req, Header: http.Header{}}
	err := CheckResponse(resp)
	if err == nil {
		t.Fatal("404 should error")
	}
	var re *RetryableError
	if errors.As(err, &re) {
		t.Error("404 should not be retryable")
	}

	header := http.Header{}
	header.Set("Retry-After", "7")
	resp = &http.Response{StatusCode: 429, Request: req, Header: header}
	err = CheckResponse(resp)
	if !errors.As(err, &re) {
		t.Fatal("429 should be retryable")
	}
	if re.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", re.RetryAfter)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d := ParseRetryAfter(""); d != 0 {
		t.Errorf("empty = %v, want 0", d)
	}
	if d := ParseRetryAfter("12"); d != 12*time.Second {
		t.Errorf("seconds = %v, want 12s", d)
	}
	if d := ParseRetryAfter("garbage"); d != 0 {
		t.Errorf("garbage = %v, want 0", d)
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if d := ParseRetryAfter(future); d < 59*time.Minute {
		t.Errorf("http date = %v, want ~1h", d)
	}
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	if d := ParseRetryAfter(past); d != 0 {
		t.Errorf("past date = %v, want 0", d)
	}
}
