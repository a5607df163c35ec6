package llm

import (
	"errors"
	"testing"
	"time"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429 status", errors.New("Error 429, Message: quota exceeded"), true},
		{"resource exhausted", errors.New("Status: RESOURCE_EXHAUSTED"), true},
		{"anthropic rate limit", errors.New("rate_limit_error: Number of requests exceeded"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{
			"please retry format",
			errors.New("Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED"),
			time.Duration(45.387061394 * float64(time.Second)),
		},
		{
			"retryDelay format",
			errors.New("retryDelay: 30s"),
			30 * time.Second,
		},
		{"no delay present", errors.New("Error 429"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractRetryDelay(tt.err); got != tt.want {
				t.Errorf("ExtractRetryDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	config := NewDefaultRetryConfig()

	// First attempt with no API delay uses InitialBackoff
	if got := config.CalculateBackoff(0, 0); got != config.InitialBackoff {
		t.Errorf("CalculateBackoff(0, 0) = %v, want %v", got, config.InitialBackoff)
	}

	// API delay plus buffer is used as the base when provided
	if got := config.CalculateBackoff(0, 20*time.Second); got != 25*time.Second {
		t.Errorf("CalculateBackoff(0, 20s) = %v, want 25s", got)
	}

	// Backoff grows with attempts and is capped at MaxBackoff
	prev := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		got := config.CalculateBackoff(attempt, 0)
		if got < prev {
			t.Errorf("backoff decreased at attempt %d: %v < %v", attempt, got, prev)
		}
		if got > config.MaxBackoff {
			t.Errorf("backoff exceeds cap at attempt %d: %v > %v", attempt, got, config.MaxBackoff)
		}
		prev = got
	}
}
