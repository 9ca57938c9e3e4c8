package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorCategoryNetwork, "X", "svc", "op", true))

	plain := errors.New("connection refused")
	wrapped := WrapError(plain, ErrorCategoryNetwork, "FETCH_FAILED", "feed", "fetch", true)
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrorCategoryNetwork, wrapped.Category)
	assert.Equal(t, "FETCH_FAILED", wrapped.Code)
	assert.Equal(t, "[network:FETCH_FAILED] connection refused", wrapped.Error())
	assert.ErrorIs(t, wrapped, plain)

	inner := NewServiceError(ErrorCategoryContract, "UNKNOWN_CANONICAL_FIELD", "no such field", "resolver", "Resolve", false, nil)
	rewrapped := WrapError(fmt.Errorf("resolve: %w", inner), ErrorCategoryProcessing, "OTHER", "normalizer", "Normalize", true)
	assert.Equal(t, ErrorCategoryContract, rewrapped.Category)
	assert.Equal(t, "UNKNOWN_CANONICAL_FIELD", rewrapped.Code)
	assert.False(t, rewrapped.Retryable)
	assert.Equal(t, "normalizer", rewrapped.ServiceName)
	assert.True(t, IsContractViolation(rewrapped))
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("i/o Timeout"), true},
		{errors.New("invalid character 'x'"), false},
		{NewServiceError(ErrorCategoryValidation, "BAD", "timeout in message", "svc", "op", false, nil), false},
		{NewServiceError(ErrorCategoryNetwork, "FLAKY", "flaky", "svc", "op", true, nil), true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsRetryableError(tc.err), "%v", tc.err)
	}
}

func TestIsContractViolation(t *testing.T) {
	assert.False(t, IsContractViolation(nil))
	assert.False(t, IsContractViolation(errors.New("plain")))
	assert.False(t, IsContractViolation(NewServiceError(ErrorCategoryValidation, "X", "x", "s", "o", false, nil)))
	assert.True(t, IsContractViolation(NewServiceError(ErrorCategoryContract, "X", "x", "s", "o", false, nil)))
}

func TestBuildBatchProcessingErrorSummary(t *testing.T) {
	var sample []error
	for i := 1; i <= 5; i++ {
		sample = append(sample, fmt.Errorf("file %d unreadable", i))
	}

	summary := BuildBatchProcessingErrorSummary(2, 5, sample)
	assert.Contains(t, summary, "2 successes and 5 failures")
	assert.Contains(t, summary, "file 3 unreadable")
	assert.NotContains(t, summary, "file 4 unreadable")
	assert.Contains(t, summary, "and 2 additional errors")

	short := BuildBatchProcessingErrorSummary(0, 1, sample[:1])
	assert.NotContains(t, short, "additional")
}

func TestSourceBreakerServesLastGoodResult(t *testing.T) {
	breaker := NewSourceBreaker("feed", 0.5, 30*time.Millisecond)
	failure := errors.New("service unavailable")

	for i := 0; i < 4; i++ {
		result, err := breaker.Execute("load", func() (interface{}, error) { return "good", nil })
		require.NoError(t, err)
		assert.Equal(t, "good", result)
	}
	for i := 0; i < 5; i++ {
		_, err := breaker.Execute("load", func() (interface{}, error) { return nil, failure })
		assert.ErrorIs(t, err, failure)
	}
	assert.False(t, breaker.IsOpen(), "nine calls are below the sample size")
	assert.InDelta(t, 5.0/9.0, breaker.GetFailureRate(), 1e-9)

	result, err := breaker.Execute("load", func() (interface{}, error) { return nil, failure })
	require.NoError(t, err)
	assert.Equal(t, "good", result)
	assert.True(t, breaker.IsOpen())

	called := false
	result, err = breaker.Execute("load", func() (interface{}, error) {
		called = true
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "good", result)

	require.Eventually(t, func() bool { return !breaker.IsOpen() }, time.Second, 5*time.Millisecond)
	result, err = breaker.Execute("load", func() (interface{}, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", result)
	assert.False(t, breaker.IsOpen())
	assert.Zero(t, breaker.GetFailureRate())
}

func TestSourceBreakerWithoutLastGoodResult(t *testing.T) {
	breaker := NewSourceBreaker("feed", 0.5, time.Minute)
	failure := errors.New("boom")

	for i := 0; i < 9; i++ {
		_, err := breaker.Execute("load", func() (interface{}, error) { return nil, failure })
		assert.ErrorIs(t, err, failure)
	}
	_, err := breaker.Execute("load", func() (interface{}, error) { return nil, failure })
	assert.ErrorIs(t, err, failure, "the tripping failure has nothing to fall back to")
	require.True(t, breaker.IsOpen())

	_, err = breaker.Execute("load", func() (interface{}, error) { return "never", nil })
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "SERVICE_UNAVAILABLE", serviceErr.Code)
	assert.True(t, serviceErr.Retryable)
}

func TestSourceBreakerDisabled(t *testing.T) {
	breaker := NewSourceBreaker("feed", -1, time.Minute)
	for i := 0; i < 20; i++ {
		_, err := breaker.Execute("load", func() (interface{}, error) { return nil, errors.New("boom") })
		assert.Error(t, err)
	}
	assert.False(t, breaker.IsOpen())
	assert.Equal(t, 1.0, breaker.GetFailureRate())
}
