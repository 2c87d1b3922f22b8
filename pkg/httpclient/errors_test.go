package httpclient

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRetryableError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *RetryableError
		want string
	}{
		{
			name: "with_retry_after",
			err: &RetryableError{
				StatusCode: 429,
				Message:    "rate limited",
				RetryAfter: 30 * time.Second,
			},
			want: "HTTP 429: rate limited (retry after 30s)",
		},
		{
			name: "without_retry_after",
			err: &RetryableError{
				StatusCode: 503,
				Message:    "service unavailable",
			},
			want: "HTTP 503: service unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRetryableError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("HTTP 429")
	err := &RetryableError{StatusCode: 429, Message: "rate limited", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}

	var target *RetryableError
	if !errors.As(fmt.Errorf("call failed: %w", err), &target) {
		t.Error("errors.As should find *RetryableError through wrapping")
	}
	if target.StatusCode != 429 {
		t.Errorf("StatusCode = %d, want 429", target.StatusCode)
	}
}

func TestRetryableError_IsRetryable(t *testing.T) {
	err := &RetryableError{StatusCode: 429}
	if !err.IsRetryable() {
		t.Error("IsRetryable() = false, want true")
	}
}
