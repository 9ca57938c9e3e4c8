package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// HTTPClientFactory hands out pooled HTTP clients keyed by timeout
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[time.Duration]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[time.Duration]*http.Client),
	}
}

// Client returns a shared client for the timeout, creating it on first use
func (f *HTTPClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	f.mutex.RLock()
	client, exists := f.clients[timeout]
	f.mutex.RUnlock()
	if exists {
		return client
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	if client, exists := f.clients[timeout]; exists {
		return client
	}

	client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	f.clients[timeout] = client

	logrus.WithFields(logrus.Fields{
		"component": "HTTPClientFactory",
		"timeout":   timeout,
	}).Debug("Created new HTTP client")

	return client
}

// CloseIdleConnections releases idle connections of every cached client
func (f *HTTPClientFactory) CloseIdleConnections() {
	f.mutex.RLock()
	defer f.mutex.RUnlock()
	for _, client := range f.clients {
		client.CloseIdleConnections()
	}
}

// SetBrowserLikeHeaders configures request headers to mimic a browser
func SetBrowserLikeHeaders(request *http.Request, acceptHeader string) {
	request.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	request.Header.Set("Accept", acceptHeader)
	request.Header.Set("Accept-Language", "en-US,en;q=0.9")
	request.Header.Set("Cache-Control", "no-cache")
}

// RetryPolicy controls ExecuteWithRetry backoff
type RetryPolicy struct {
	MaxRetryAttempts int
	BaseBackoff      time.Duration
}

// ExecuteWithRetry performs a GET built by newRequest with exponential
// backoff. newRequest is called per attempt so request bodies are never reused.
// metrics may be nil.
func ExecuteWithRetry(ctx context.Context, client *http.Client, newRequest func(context.Context) (*http.Request, error), policy RetryPolicy, metrics *HTTPMetrics) (*http.Response, error) {
	if policy.BaseBackoff <= 0 {
		policy.BaseBackoff = time.Second
	}
	if policy.MaxRetryAttempts < 0 {
		policy.MaxRetryAttempts = 0
	}

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = policy.BaseBackoff
	exponential.Multiplier = 2
	exponential.RandomizationFactor = 0
	exponential.MaxElapsedTime = 0
	schedule := backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(policy.MaxRetryAttempts)), ctx)

	var response *http.Response
	var buildErr error
	attemptNumber := 0

	attempt := func() error {
		attemptNumber++

		request, err := newRequest(ctx)
		if err != nil {
			buildErr = fmt.Errorf("failed to build request: %w", err)
			return backoff.Permanent(buildErr)
		}

		resp, err := client.Do(request)
		if err == nil && resp.StatusCode == http.StatusOK {
			if metrics != nil {
				metrics.RecordHTTPRequest(true, resp.StatusCode, false)
			}
			response = resp
			return nil
		}

		var attemptErr error
		if err != nil {
			if metrics != nil {
				metrics.RecordHTTPRequest(false, 0, errors.Is(err, context.DeadlineExceeded))
			}
			attemptErr = fmt.Errorf("attempt %d failed with network error: %w", attemptNumber, err)
		} else {
			if metrics != nil {
				metrics.RecordHTTPRequest(false, resp.StatusCode, false)
			}
			attemptErr = fmt.Errorf("attempt %d failed with HTTP %d: %s", attemptNumber, resp.StatusCode, http.StatusText(resp.StatusCode))
			resp.Body.Close()
		}

		logrus.WithFields(logrus.Fields{
			"component": "HTTPClientFactory",
			"url":       request.URL.String(),
			"attempt":   attemptNumber,
		}).WithError(attemptErr).Debug("HTTP request attempt failed")
		return attemptErr
	}

	notify := func(err error, wait time.Duration) {
		if metrics != nil {
			metrics.RecordRetryAttempt()
		}
	}

	err := backoff.RetryNotify(attempt, schedule, notify)
	if err == nil {
		return response, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if buildErr != nil {
		return nil, buildErr
	}

	return nil, NewServiceError(
		ErrorCategoryNetwork,
		"HTTP_RETRIES_EXHAUSTED",
		fmt.Sprintf("HTTP request failed after %d attempts", attemptNumber),
		"http_client",
		"ExecuteWithRetry",
		true,
		err,
	)
}
