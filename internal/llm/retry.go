package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spherical/pdfconv/internal/observability"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// shouldRetry reports whether err may succeed on another attempt.
// Cancellation and deadline errors never do, and neither do client errors
// other than 429. Errors without a recognizable status are retried.
func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if code, ok := statusCode(err); ok {
		return retryableStatus(code)
	}
	msg := err.Error()
	for _, grpcCode := range terminalGRPCCodes {
		if strings.Contains(msg, "code = "+grpcCode) {
			return false
		}
	}
	return true
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusBadGateway: // 502
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	default:
		return code >= 500
	}
}

// terminalGRPCCodes are gRPC status names the Gemini client reports for
// requests that will be rejected again.
var terminalGRPCCodes = []string{
	"InvalidArgument",
	"NotFound",
	"PermissionDenied",
	"Unauthenticated",
	"FailedPrecondition",
}

// statusPattern matches the status in langchaingo and googleapi error text,
// e.g. "API returned unexpected status code: 401" or "googleapi: Error 403:".
var statusPattern = regexp.MustCompile(`(?i)(?:status code:?|error|http)\s*(\d{3})\b`)

// statusCode extracts the HTTP status carried by a provider error.
func statusCode(err error) (int, bool) {
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) && coded.HTTPCode() > 0 {
		return coded.HTTPCode(), true
	}

	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil || code < 100 || code > 599 {
		return 0, false
	}
	return code, true
}

// calculateBackoff calculates exponential backoff duration
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	// initialBackoff * 2^attempt
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}

// retryWithBackoff runs fn until it succeeds, returns a non-retryable error,
// or MaxRetries retries have been spent.
func retryWithBackoff(ctx context.Context, config RetryConfig, logger *observability.Logger, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		// Don't wait after last attempt
		if attempt == config.MaxRetries {
			break
		}

		backoff := calculateBackoff(attempt, config)
		logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Int("max_retries", config.MaxRetries).
			Dur("backoff", backoff).
			Msg("Request failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", config.MaxRetries, lastErr)
}
