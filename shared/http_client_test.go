package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getRequest(url string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestExecuteWithRetryRecovers(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	metrics := NewHTTPMetrics()
	response, err := ExecuteWithRetry(context.Background(), server.Client(), getRequest(server.URL),
		RetryPolicy{MaxRetryAttempts: 2, BaseBackoff: time.Millisecond}, metrics)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusOK, response.StatusCode)
	snapshot := metrics.GetSnapshot()
	assert.Equal(t, int64(2), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.SuccessfulRequests)
	assert.Equal(t, int64(1), snapshot.RetryAttempts)
	assert.Equal(t, map[int]int64{http.StatusServiceUnavailable: 1, http.StatusOK: 1}, snapshot.StatusCodes)
}

func TestExecuteWithRetryExhausted(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := ExecuteWithRetry(context.Background(), server.Client(), getRequest(server.URL),
		RetryPolicy{MaxRetryAttempts: 1, BaseBackoff: time.Millisecond}, nil)

	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "HTTP_RETRIES_EXHAUSTED", serviceErr.Code)
	assert.True(t, serviceErr.Retryable)
	assert.Contains(t, serviceErr.Cause.Error(), "HTTP 500")
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestExecuteWithRetryStopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExecuteWithRetry(ctx, server.Client(), getRequest(server.URL),
		RetryPolicy{MaxRetryAttempts: 5, BaseBackoff: time.Hour}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecuteWithRetryDoesNotRetryBuildErrors(t *testing.T) {
	calls := 0
	metrics := NewHTTPMetrics()
	_, err := ExecuteWithRetry(context.Background(), http.DefaultClient, func(ctx context.Context) (*http.Request, error) {
		calls++
		return http.NewRequestWithContext(ctx, http.MethodGet, "://missing-scheme", nil)
	}, RetryPolicy{MaxRetryAttempts: 3, BaseBackoff: time.Millisecond}, metrics)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build request")
	assert.Equal(t, 1, calls)
	assert.Zero(t, metrics.GetSnapshot().RetryAttempts)
}

func TestHTTPClientFactoryReusesClients(t *testing.T) {
	factory := NewHTTPClientFactory(7 * time.Second)
	defer factory.CloseIdleConnections()

	first := factory.Client(0)
	assert.Same(t, first, factory.Client(7*time.Second))
	assert.Equal(t, 7*time.Second, first.Timeout)
	assert.NotSame(t, first, factory.Client(time.Second))
}

func TestSetBrowserLikeHeaders(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	SetBrowserLikeHeaders(request, "text/html")
	assert.Equal(t, "text/html", request.Header.Get("Accept"))
	assert.Contains(t, request.Header.Get("User-Agent"), "Mozilla/5.0")
}

func TestRateLimiterSpacesRequests(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(20 * time.Millisecond)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))
	require.NoError(t, limiter.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
	assert.Equal(t, int64(2), limiter.GetRequestCount())
}

func TestRateLimiterZeroDelayNeverWaits(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(0)

	start := time.Now()
	for i := 0; i < 50; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(50), limiter.GetRequestCount())
}

func TestRateLimiterHonoursContext(t *testing.T) {
	limiter := NewHTTPRequestRateLimiter(time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.Error(t, limiter.Wait(ctx), "an hour-long wait cannot fit the deadline")
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), limiter.GetRequestCount())

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	assert.Error(t, limiter.Wait(cancelled))
	assert.Equal(t, int64(1), limiter.GetRequestCount())
}
