package utils

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTruncateText(t *testing.T) {
	short := "hello"
	if got := TruncateText(short, 100); got != short {
		t.Errorf("Expected short text untouched, got %q", got)
	}

	long := strings.Repeat("a", 50)
	got := TruncateText(long, 10)
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Errorf("Expected truncated prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "... [truncated]") {
		t.Errorf("Expected truncation marker, got %q", got)
	}
}

func TestNewRequestID_Unique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	if a == "" || b == "" {
		t.Fatal("Expected non-empty request ids")
	}
	if a == b {
		t.Errorf("Expected unique ids, got %q twice", a)
	}
}

func TestScrubSecrets(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"api key", `api_key = "abcdef1234567890"`},
		{"token", `token: ghx_sometokenvalue123`},
		{"password", `password=hunter42secret`},
		{"github pat", "Authorization: ghp_" + strings.Repeat("a", 36)},
		{"openai key", "key is sk-" + strings.Repeat("b", 24)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ScrubSecrets(tc.input)
			if !strings.Contains(got, "[REDACTED]") {
				t.Errorf("Expected %q scrubbed, got %q", tc.input, got)
			}
		})
	}
}

func TestScrubSecrets_LeavesPlainText(t *testing.T) {
	input := "def handle_request(request):\n    return request.body"
	if got := ScrubSecrets(input); got != input {
		t.Errorf("Expected plain code untouched, got %q", got)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success after retries, got: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("always broken")
	calls := 0
	err := Retry(2, time.Millisecond, func() error {
		calls++
		return sentinel
	})
	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped sentinel error, got: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}
