package retry

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig provides sensible defaults.
var DefaultConfig = Config{
	MaxAttempts:     3,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry // Should not happen
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// Fatal (credentials or request issues, retrying cannot help)
	if strings.Contains(sLower, "invalid api key") ||
		strings.Contains(sLower, "missing/invalid api key") ||
		strings.Contains(s, "http 400") ||
		strings.Contains(s, "http 401") ||
		strings.Contains(s, "http 403") ||
		strings.Contains(s, "http 404") ||
		strings.Contains(sLower, "invalid address") {
		return ActionFatal
	}

	// Default to Retry (network, 5xx, rate limits, etc)
	return ActionRetry
}

// Do runs fn until it succeeds, fails fatally, or attempts run out, waiting
// with exponential backoff between attempts.
func Do(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if ClassifyError(err) == ActionFatal {
			return err // Stop immediately, do not retry
		}

		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

func calculateBackoff(attempt int, config Config) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if config.MaxDelay > 0 && delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}
