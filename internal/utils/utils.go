package utils

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TruncateText caps text at maxChars, appending a marker when content was
// dropped so consumers know the tail is missing.
func TruncateText(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "\n... [truncated]"
}

// NewRequestID returns a correlation id for one edit request.
func NewRequestID() string {
	return uuid.NewString()
}

var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)['"]?[\w-]{8,}['"]?`),
	regexp.MustCompile(`(?i)(token\s*[:=]\s*)['"]?[\w-]{8,}['"]?`),
	regexp.MustCompile(`(?i)(password\s*[:=]\s*)['"]?\S{4,}['"]?`),
	regexp.MustCompile(`(?i)(secret[_-]?key\s*[:=]\s*)['"]?[\w-]{8,}['"]?`),
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
}

// ScrubSecrets masks credential-looking values before content is logged or
// sent to a model.
func ScrubSecrets(text string) string {
	for _, re := range secretPatterns {
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			if idx := strings.IndexAny(match, ":="); idx != -1 {
				return match[:idx+1] + " [REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return text
}

// Retry runs fn up to attempts times with exponential backoff between
// failures, returning the last error when every attempt fails.
func Retry(attempts int, initialDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := initialDelay
	for i := 0; i < attempts; i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
