package base

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tributary-data/tributary/pkg/errors"
)

// ErrorHandler handles errors with categorization and retry logic
type ErrorHandler struct {
	logger        *zap.Logger
	maxRetries    int
	baseDelay     time.Duration
	errorCounts   map[string]int64
	errorMutex    sync.RWMutex
	totalErrors   int64
	retriedErrors int64
	fatalErrors   int64
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger, maxRetries int, baseDelay time.Duration) *ErrorHandler {
	return &ErrorHandler{
		logger:      logger,
		maxRetries:  maxRetries,
		baseDelay:   baseDelay,
		errorCounts: make(map[string]int64),
	}
}

// HandleError processes an error with appropriate handling
func (eh *ErrorHandler) HandleError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	atomic.AddInt64(&eh.totalErrors, 1)

	errorType := eh.categorizeError(err)
	eh.incrementErrorCount(errorType)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("error_type", errorType),
	}

	if eh.ShouldRetry(err) {
		atomic.AddInt64(&eh.retriedErrors, 1)
		eh.logger.Warn("retryable error occurred", fields...)
		return err
	}

	atomic.AddInt64(&eh.fatalErrors, 1)
	eh.logger.Error("fatal error occurred", fields...)
	return err
}

// ShouldRetry determines if an error should be retried
func (eh *ErrorHandler) ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	// Errors explicitly marked non-retryable
	if errors.IsType(err, errors.ErrorTypeInternal) ||
		errors.IsType(err, errors.ErrorTypeValidation) ||
		errors.IsType(err, errors.ErrorTypeConfig) ||
		errors.IsType(err, errors.ErrorTypeAuthentication) ||
		errors.IsType(err, errors.ErrorTypeCapability) {
		return false
	}

	if errors.IsRetryable(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	nonRetryable := []string{
		"invalid credentials",
		"unauthorized",
		"forbidden",
		"not found",
		"bad request",
		"invalid configuration",
		"unsupported",
	}

	for _, pattern := range nonRetryable {
		if strings.Contains(errStr, pattern) {
			return false
		}
	}

	retryable := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"broken pipe",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"rate limit",
		"throttle",
		"network",
		"i/o error",
	}

	for _, pattern := range retryable {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return errors.IsType(err, errors.ErrorTypeConnection) ||
		errors.IsType(err, errors.ErrorTypeTimeout)
}

// GetRetryDelay calculates the retry delay for a given attempt
func (eh *ErrorHandler) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return eh.baseDelay
	}

	// Exponential backoff with jitter
	delay := eh.baseDelay * time.Duration(1<<uint(attempt-1))

	maxDelay := 5 * time.Minute
	if delay > maxDelay {
		delay = maxDelay
	}

	jitter := time.Duration(float64(delay) * 0.25 * (2*randomFloat() - 1))
	delay += jitter

	return delay
}

// GetErrorStats returns error statistics
func (eh *ErrorHandler) GetErrorStats() map[string]interface{} {
	eh.errorMutex.RLock()
	defer eh.errorMutex.RUnlock()

	errorCounts := make(map[string]int64, len(eh.errorCounts))
	for k, v := range eh.errorCounts {
		errorCounts[k] = v
	}

	return map[string]interface{}{
		"total_errors":   atomic.LoadInt64(&eh.totalErrors),
		"retried_errors": atomic.LoadInt64(&eh.retriedErrors),
		"fatal_errors":   atomic.LoadInt64(&eh.fatalErrors),
		"errors_by_type": errorCounts,
	}
}

// ResetStats resets error statistics
func (eh *ErrorHandler) ResetStats() {
	eh.errorMutex.Lock()
	defer eh.errorMutex.Unlock()

	atomic.StoreInt64(&eh.totalErrors, 0)
	atomic.StoreInt64(&eh.retriedErrors, 0)
	atomic.StoreInt64(&eh.fatalErrors, 0)

	eh.errorCounts = make(map[string]int64)
}

// categorizeError determines the error category
func (eh *ErrorHandler) categorizeError(err error) string {
	if err == nil {
		return "none"
	}

	if typed, ok := err.(*errors.Error); ok {
		return string(typed.Type)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "connection"):
		return "connection"
	case strings.Contains(errStr, "auth") || strings.Contains(errStr, "unauthorized"):
		return "authentication"
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "throttle"):
		return "rate_limit"
	case strings.Contains(errStr, "config"):
		return "config"
	case strings.Contains(errStr, "parse") || strings.Contains(errStr, "unmarshal"):
		return "data"
	default:
		return "unknown"
	}
}

// incrementErrorCount increments the count for a specific error type
func (eh *ErrorHandler) incrementErrorCount(errorType string) {
	eh.errorMutex.Lock()
	defer eh.errorMutex.Unlock()
	eh.errorCounts[errorType]++
}

// randomFloat returns a random float between 0 and 1
func randomFloat() float64 {
	return float64(time.Now().UnixNano()%1000) / 1000.0
}

// RetryFunc is a function that can be retried
type RetryFunc func() error

// ExecuteWithRetry executes a function with retry logic
func (eh *ErrorHandler) ExecuteWithRetry(ctx context.Context, fn RetryFunc) error {
	var lastErr error

	for attempt := 0; attempt <= eh.maxRetries; attempt++ {
		if attempt > 0 {
			delay := eh.GetRetryDelay(attempt)
			eh.logger.Info("retrying operation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !eh.ShouldRetry(err) {
			return err
		}
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", eh.maxRetries, lastErr)
}
