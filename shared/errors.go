package shared

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryNetwork       ErrorCategory = "network"
	ErrorCategoryDatabase      ErrorCategory = "database"
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryProcessing    ErrorCategory = "processing"
	ErrorCategoryResource      ErrorCategory = "resource"
	ErrorCategoryTimeout       ErrorCategory = "timeout"
	// ErrorCategoryContract marks programmer errors such as asking the
	// resolver for a canonical field that was never registered.
	ErrorCategoryContract ErrorCategory = "contract"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// IsContractViolation reports whether err is (or wraps) a contract error.
func IsContractViolation(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr) && serviceErr.Category == ErrorCategoryContract
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return NewServiceError(serviceErr.Category, serviceErr.Code, serviceErr.Message, serviceName, operation, serviceErr.Retryable, err)
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}

	errorMsg := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout", "connection refused", "connection reset",
		"temporary failure", "service unavailable", "too many requests",
		"network", "dns", "socket",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errorMsg, pattern) {
			return true
		}
	}

	return false
}

// BuildBatchProcessingErrorSummary creates an error summary for batch results
func BuildBatchProcessingErrorSummary(successCount, totalErrorCount int, sampleErrors []error) string {
	var summaryBuilder strings.Builder
	summaryBuilder.WriteString(fmt.Sprintf("batch processing completed with %d successes and %d failures", successCount, totalErrorCount))

	sampleSize := len(sampleErrors)
	if sampleSize > 3 {
		sampleSize = 3
	}

	for i := 0; i < sampleSize; i++ {
		summaryBuilder.WriteString(fmt.Sprintf("; %s", sampleErrors[i].Error()))
	}

	if totalErrorCount > sampleSize {
		summaryBuilder.WriteString(fmt.Sprintf("; and %d additional errors", totalErrorCount-sampleSize))
	}

	return summaryBuilder.String()
}

// SourceBreaker isolates a flaky upstream source. After too many failures
// it stops calling the source and serves the last successful result until
// the cool-down elapses.
type SourceBreaker struct {
	serviceName     string
	breaker         *gobreaker.CircuitBreaker
	mutex           sync.RWMutex
	lastGoodResult  interface{}
	hasLastGoodData bool
}

// minBreakerSamples is how many calls are needed before the failure rate counts.
const minBreakerSamples = 10

// NewSourceBreaker creates a breaker that opens once the failure rate over
// at least ten calls exceeds maxFailureRate. A negative rate disables it.
func NewSourceBreaker(serviceName string, maxFailureRate float64, coolDown time.Duration) *SourceBreaker {
	logger := logrus.WithFields(logrus.Fields{
		"service_name": serviceName,
		"component":    "SourceBreaker",
	})

	return &SourceBreaker{
		serviceName: serviceName,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    serviceName,
			Timeout: coolDown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				if maxFailureRate < 0 || counts.Requests < minBreakerSamples {
					return false
				}
				rate := float64(counts.TotalFailures) / float64(counts.Requests)
				if rate > maxFailureRate {
					logger.WithFields(logrus.Fields{
						"failure_rate":     rate,
						"max_failure_rate": maxFailureRate,
						"failure_count":    counts.TotalFailures,
						"success_count":    counts.TotalSuccesses,
					}).Warn("Circuit breaker opened due to high failure rate")
					return true
				}
				return false
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"from": from.String(),
					"to":   to.String(),
				}).Info("Circuit breaker state changed")
			},
		}),
	}
}

// Execute runs fn unless the breaker is open, in which case the last good
// result is returned. When there is none, a retryable resource error is
// returned instead.
func (b *SourceBreaker) Execute(operation string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	switch {
	case err == nil:
		b.mutex.Lock()
		b.lastGoodResult = result
		b.hasLastGoodData = true
		b.mutex.Unlock()
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		logrus.WithFields(logrus.Fields{
			"service_name": b.serviceName,
			"operation":    operation,
			"component":    "SourceBreaker",
		}).Warn("Circuit breaker is open, serving last good result")
		return b.fallback(operation, err)
	}

	// the failure that trips the breaker already gets the fallback
	if b.IsOpen() {
		if last, ok := b.lastGood(); ok {
			return last, nil
		}
	}
	return nil, err
}

// IsOpen reports whether calls are currently short-circuited.
func (b *SourceBreaker) IsOpen() bool {
	return b.breaker.State() == gobreaker.StateOpen
}

// GetFailureRate returns the failure rate of the current breaker generation.
func (b *SourceBreaker) GetFailureRate() float64 {
	counts := b.breaker.Counts()
	if counts.Requests == 0 {
		return 0.0
	}
	return float64(counts.TotalFailures) / float64(counts.Requests)
}

func (b *SourceBreaker) lastGood() (interface{}, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.lastGoodResult, b.hasLastGoodData
}

func (b *SourceBreaker) fallback(operation string, cause error) (interface{}, error) {
	if last, ok := b.lastGood(); ok {
		return last, nil
	}

	return nil, NewServiceError(
		ErrorCategoryResource,
		"SERVICE_UNAVAILABLE",
		fmt.Sprintf("Service %s is temporarily unavailable for operation %s", b.serviceName, operation),
		b.serviceName,
		operation,
		true,
		cause,
	)
}
