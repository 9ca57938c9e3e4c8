package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

// DefaultMaxFeedBytes caps the size of a feed body.
const DefaultMaxFeedBytes = 32 << 20

// RemoteJSONSource fetches records from a JSON feed over HTTP.
type RemoteJSONSource struct {
	url         string
	client      *http.Client
	rateLimiter *shared.HTTPRequestRateLimiter
	retry       shared.RetryPolicy
	breaker     *shared.SourceBreaker
	httpMetrics *shared.HTTPMetrics
	maxBytes    int64
}

// NewRemoteJSONSource creates a feed source using the shared client factory.
func NewRemoteJSONSource(url string, cfg shared.ServiceConfig, factory *shared.HTTPClientFactory) *RemoteJSONSource {
	if factory == nil {
		factory = shared.NewHTTPClientFactory(cfg.HTTPRequestTimeout)
	}
	return &RemoteJSONSource{
		url:         url,
		client:      factory.Client(cfg.HTTPRequestTimeout),
		rateLimiter: shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		retry: shared.RetryPolicy{
			MaxRetryAttempts: cfg.MaxRetryAttempts,
			BaseBackoff:      time.Second,
		},
		breaker:     shared.NewSourceBreaker("Remote_JSON_Source", 0.5, 5*time.Minute),
		httpMetrics: shared.NewHTTPMetrics(),
		maxBytes:    DefaultMaxFeedBytes,
	}
}

// WithMaxBytes overrides the body size limit. Larger feeds are rejected
// rather than truncated.
func (s *RemoteJSONSource) WithMaxBytes(limit int64) *RemoteJSONSource {
	if limit > 0 {
		s.maxBytes = limit
	}
	return s
}

// Name identifies the source in logs and metrics.
func (s *RemoteJSONSource) Name() string {
	return "feed:" + s.url
}

// HTTPMetrics returns request counters of the feed.
func (s *RemoteJSONSource) HTTPMetrics() *shared.HTTPMetrics {
	return s.httpMetrics
}

// LoadRecords fetches and decodes the feed. While the breaker is open the
// last successfully fetched records are served.
func (s *RemoteJSONSource) LoadRecords(ctx context.Context) ([]models.RawIPORecord, error) {
	result, err := s.breaker.Execute("LoadRecords", func() (interface{}, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	records, _ := result.([]models.RawIPORecord)
	return records, nil
}

func (s *RemoteJSONSource) fetch(ctx context.Context) ([]models.RawIPORecord, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	response, err := shared.ExecuteWithRetry(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, err
		}
		shared.SetBrowserLikeHeaders(request, "application/json")
		return request, nil
	}, s.retry, s.httpMetrics)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, s.maxBytes+1))
	if err != nil {
		return nil, shared.WrapError(fmt.Errorf("read feed body: %w", err), shared.ErrorCategoryNetwork, "FEED_READ_FAILED", "RemoteJSONSource", "fetch", true)
	}
	// a cut-off body would otherwise be "repaired" into a partial list
	if int64(len(body)) > s.maxBytes {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, "FEED_TOO_LARGE",
			fmt.Sprintf("feed %s exceeds %d bytes", s.url, s.maxBytes), "RemoteJSONSource", "fetch", false, nil).
			WithDetails(map[string]interface{}{"url": s.url, "max_bytes": s.maxBytes})
	}

	records, err := DecodeRecordPayload(body)
	if err != nil {
		return nil, shared.WrapError(err, shared.ErrorCategoryValidation, "FEED_MALFORMED", "RemoteJSONSource", "fetch", false)
	}

	logrus.WithFields(logrus.Fields{
		"component": "RemoteJSONSource",
		"url":       s.url,
		"records":   len(records),
	}).Info("Fetched records from feed")

	return records, nil
}
