package httpclient

import (
	"net/http"
	"testing"
	"time"
)

func TestParseOpenAIHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		validate func(t *testing.T, info RateLimitInfo)
	}{
		{
			name:    "retry_after_seconds",
			headers: map[string]string{"Retry-After": "30"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RetryAfter != 30*time.Second {
					t.Errorf("RetryAfter = %v, want 30s", info.RetryAfter)
				}
			},
		},
		{
			name:    "reset_requests_duration",
			headers: map[string]string{"x-ratelimit-reset-requests": "6m0s"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.ResetTime == 0 {
					t.Error("ResetTime not set from x-ratelimit-reset-requests")
				}
				until := time.Until(time.Unix(info.ResetTime, 0))
				if until < 5*time.Minute || until > 7*time.Minute {
					t.Errorf("ResetTime %v from now, want ~6m", until)
				}
			},
		},
		{
			name:    "remaining_requests",
			headers: map[string]string{"x-ratelimit-remaining-requests": "42"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RequestsRemaining != 42 {
					t.Errorf("RequestsRemaining = %d, want 42", info.RequestsRemaining)
				}
			},
		},
		{
			name:    "empty_headers",
			headers: map[string]string{},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RetryAfter != 0 || info.ResetTime != 0 {
					t.Errorf("expected zero info, got %+v", info)
				}
			},
		},
		{
			name:    "malformed_retry_after",
			headers: map[string]string{"Retry-After": "soon"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RetryAfter != 0 {
					t.Errorf("RetryAfter = %v, want 0 for malformed header", info.RetryAfter)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}
			tt.validate(t, ParseOpenAIHeaders(headers))
		})
	}
}

func TestParseBraveHeaders(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		validate func(t *testing.T, info RateLimitInfo)
	}{
		{
			name:    "reset_comma_separated",
			headers: map[string]string{"X-RateLimit-Reset": "1, 19704"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RetryAfter != time.Second {
					t.Errorf("RetryAfter = %v, want 1s (first CSV value)", info.RetryAfter)
				}
			},
		},
		{
			name:    "remaining_comma_separated",
			headers: map[string]string{"X-RateLimit-Remaining": "0, 1500"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RequestsRemaining != 0 {
					t.Errorf("RequestsRemaining = %d, want 0", info.RequestsRemaining)
				}
			},
		},
		{
			name:    "retry_after_wins_when_only_header",
			headers: map[string]string{"Retry-After": "5"},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RetryAfter != 5*time.Second {
					t.Errorf("RetryAfter = %v, want 5s", info.RetryAfter)
				}
			},
		},
		{
			name:    "empty_headers",
			headers: map[string]string{},
			validate: func(t *testing.T, info RateLimitInfo) {
				if info.RetryAfter != 0 {
					t.Errorf("RetryAfter = %v, want 0", info.RetryAfter)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}
			tt.validate(t, ParseBraveHeaders(headers))
		})
	}
}

func TestFirstCSV(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"1", "1"},
		{"1, 19704", "1"},
		{" 7 ,8", "7"},
	}
	for _, tt := range tests {
		if got := firstCSV(tt.in); got != tt.want {
			t.Errorf("firstCSV(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
