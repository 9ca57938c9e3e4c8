package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jobNow = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

type staticSource struct {
	name    string
	records []models.RawIPORecord
	err     error
	calls   int
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) LoadRecords(ctx context.Context) ([]models.RawIPORecord, error) {
	s.calls++
	return s.records, s.err
}

type memoryStore struct {
	source  string
	records []models.RawIPORecord
	err     error
}

func (m *memoryStore) StoreRecords(ctx context.Context, source string, records []models.RawIPORecord) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.source = source
	m.records = append(m.records, records...)
	return len(records), nil
}

type countingPurger struct {
	maxAge time.Duration
	purged int64
}

func (p *countingPurger) PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	p.maxAge = maxAge
	return p.purged, nil
}

func newJobCatalog(source services.RecordSource) *services.IPOCatalog {
	clock := shared.FixedClock{At: jobNow}
	cache := services.NewRecordCacheWithSweep(shared.CacheConfig{}, clock, 0)
	return services.NewIPOCatalog(source, services.NewNormalizer(nil, clock), cache)
}

func TestAnalyzeDataCompleteness(t *testing.T) {
	name := "Acme Fintech"
	price := "99"
	open := jobNow

	complete := AnalyzeDataCompleteness(models.CanonicalIPO{ID: "a", CompanyName: &name, IssuePrice: &price, OpenDate: &open})
	assert.True(t, complete.CriticalFieldsComplete)
	assert.Equal(t, 4, complete.PopulatedFields)
	assert.Equal(t, len(models.CanonicalFields), complete.TotalFields)
	assert.Equal(t, 100.0, complete.CriticalCompleteness)
	assert.Empty(t, complete.MissingCriticalFields)

	partial := AnalyzeDataCompleteness(models.CanonicalIPO{CompanyName: &name})
	assert.False(t, partial.CriticalFieldsComplete)
	assert.Equal(t, []string{"openDate", "issuePrice"}, partial.MissingCriticalFields)
	assert.Contains(t, partial.MissingOptionalFields, "id")
	assert.InDelta(t, 100.0/3, partial.CriticalCompleteness, 1e-9)
}

func TestCatalogRefreshJob(t *testing.T) {
	source := &staticSource{name: "static", records: []models.RawIPORecord{
		{"company_name": "Acme Fintech", "issue_price": "99", "open_date": "2025-06-12"},
		{"company_name": "Zen Tech"},
	}}
	catalog := newJobCatalog(source)
	job := NewCatalogRefreshJob(catalog)

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.MissingCritical)
	assert.Equal(t, 1, summary.Partial)

	_, err = job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls, "every run reloads from the source")
}

func TestCatalogRefreshJobPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	catalog := newJobCatalog(&staticSource{name: "static", err: boom})
	hook := logtest.NewGlobal()
	defer hook.Reset()

	_, err := NewCatalogRefreshJob(catalog).Run(context.Background())
	assert.ErrorIs(t, err, boom)

	var serviceErr *shared.ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "CATALOG_REFRESH_FAILED", serviceErr.Code)
	assert.NotNil(t, serviceErr.Details)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "CATALOG_REFRESH_FAILED", entry.Data["error_code"])
}

func TestCatalogRefreshJobLogsMetricsSummary(t *testing.T) {
	catalog := newJobCatalog(&staticSource{name: "static", records: []models.RawIPORecord{{"company_name": "Acme Fintech"}}})
	hook := logtest.NewGlobal()
	defer hook.Reset()

	_, err := NewCatalogRefreshJob(catalog).Run(context.Background())
	require.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Service metrics summary", entry.Message)
	assert.Equal(t, "IPO_Catalog", entry.Data["service_name"])
	assert.Equal(t, int64(1), entry.Data["successful_requests"])
}

func TestHTMLIngestJob(t *testing.T) {
	scraped := &staticSource{name: "html", records: []models.RawIPORecord{{"company_name": "Orbit Cables"}}}
	store := &memoryStore{}
	catalogSource := &staticSource{name: "db"}
	catalog := newJobCatalog(catalogSource)

	_, err := catalog.List(context.Background(), services.CatalogFilter{})
	require.NoError(t, err)

	stored, err := NewHTMLIngestJob(scraped, store, catalog).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, "html", store.source)

	_, err = catalog.List(context.Background(), services.CatalogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, catalogSource.calls, "ingest invalidates the catalog")
}

func TestHTMLIngestJobFailures(t *testing.T) {
	_, err := NewHTMLIngestJob(&staticSource{name: "html", err: errors.New("timeout")}, &memoryStore{}, nil).Run(context.Background())
	assert.Error(t, err)

	store := &memoryStore{err: errors.New("db down")}
	_, err = NewHTMLIngestJob(&staticSource{name: "html", records: []models.RawIPORecord{{"a": 1}}}, store, nil).Run(context.Background())
	assert.ErrorContains(t, err, "db down")

	stored, err := NewHTMLIngestJob(&staticSource{name: "html"}, &memoryStore{}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stored)
}

func TestCacheCleanupJob(t *testing.T) {
	current := jobNow
	clock := shared.ClockFunc(func() time.Time { return current })
	cache := services.NewRecordCacheWithSweep(shared.CacheConfig{DefaultTTL: time.Minute}, clock, 0)
	cache.Set("a", 1)
	current = current.Add(2 * time.Minute)

	purger := &countingPurger{purged: 3}
	NewCacheCleanupJob(cache, purger, 30*24*time.Hour).Run(context.Background())

	assert.Equal(t, 0, cache.Size())
	assert.Equal(t, 30*24*time.Hour, purger.maxAge)
}

func TestRunEvery(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var runs int32

	done := make(chan struct{})
	go func() {
		RunEvery(ctx, "test", 5*time.Millisecond, true, func(context.Context) {
			if atomic.AddInt32(&runs, 1) >= 3 {
				cancel()
			}
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunEvery did not stop after cancel")
	}
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(3))
}

func TestRunEveryDisabled(t *testing.T) {
	called := false
	RunEvery(context.Background(), "off", 0, true, func(context.Context) { called = true })
	assert.False(t, called)
}
