package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const catalogCacheKey = "canonical_records"

// ipoNamespace seeds name-based keys so the same company always maps to the same key.
var ipoNamespace = uuid.MustParse("6f1b8d0e-3c7a-5e52-9a1d-4b2f0c9e7a31")

// CatalogFilter narrows List results. Zero values match everything.
type CatalogFilter struct {
	Status models.Status
	Window models.Window
	Query  string
}

// IPOCatalog loads raw records from a source, normalizes them and serves
// the canonical list from a cache. Classification is recomputed on every
// read so cached records never carry a stale status.
type IPOCatalog struct {
	source     RecordSource
	normalizer *Normalizer
	cache      *RecordCache
	utility    *UtilityService
	metrics    *shared.ServiceMetrics

	reloadMutex sync.Mutex
	lastLoaded  time.Time
}

// NewIPOCatalog creates a catalog over source.
func NewIPOCatalog(source RecordSource, normalizer *Normalizer, cache *RecordCache) *IPOCatalog {
	if normalizer == nil {
		normalizer = NewNormalizer(nil, nil)
	}
	if cache == nil {
		cache = NewRecordCacheWithSweep(shared.CacheConfig{}, normalizer.Clock(), 0)
	}
	return &IPOCatalog{
		source:     source,
		normalizer: normalizer,
		cache:      cache,
		utility:    NewUtilityService(),
		metrics:    shared.NewServiceMetrics("IPO_Catalog"),
	}
}

// Normalizer returns the normalizer the catalog uses.
func (c *IPOCatalog) Normalizer() *Normalizer {
	return c.normalizer
}

// Cache returns the backing cache.
func (c *IPOCatalog) Cache() *RecordCache {
	return c.cache
}

// Metrics returns catalog counters.
func (c *IPOCatalog) Metrics() *shared.ServiceMetrics {
	return c.metrics
}

// LastLoaded reports when the catalog last reloaded from its source.
func (c *IPOCatalog) LastLoaded() time.Time {
	c.reloadMutex.Lock()
	defer c.reloadMutex.Unlock()
	return c.lastLoaded
}

// Reload fetches and normalizes every record, replacing the cached list.
func (c *IPOCatalog) Reload(ctx context.Context) ([]models.CanonicalIPO, error) {
	c.reloadMutex.Lock()
	defer c.reloadMutex.Unlock()

	return c.reloadLocked(ctx)
}

func (c *IPOCatalog) reloadLocked(ctx context.Context) ([]models.CanonicalIPO, error) {
	start := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"component": "ipo_catalog",
		"source":    c.sourceName(),
	})

	if c.source == nil {
		c.metrics.RecordRequest(false, time.Since(start))
		return nil, shared.NewServiceError(shared.ErrorCategoryConfiguration, "NO_SOURCE",
			"catalog has no record source", "IPOCatalog", "Reload", false, nil)
	}

	raws, err := c.source.LoadRecords(ctx)
	if err != nil {
		c.metrics.RecordRequest(false, time.Since(start))
		return nil, fmt.Errorf("load records from %s: %w", c.sourceName(), err)
	}

	canonical, err := c.normalizer.NormalizeAll(raws)
	if err != nil {
		c.metrics.RecordRequest(false, time.Since(start))
		return nil, fmt.Errorf("normalize records: %w", err)
	}

	for i := range canonical {
		canonical[i].Key = c.recordKey(canonical[i])
	}
	records, duplicates := dedupeByKey(canonical)
	c.cache.Set(catalogCacheKey, records)
	c.lastLoaded = c.normalizer.Clock().Now()
	c.metrics.RecordRequest(true, time.Since(start))
	c.metrics.SetCustomMetric("records", len(records))

	logger.WithFields(logrus.Fields{
		"raw_count":   len(raws),
		"records":     len(records),
		"duplicates":  duplicates,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Catalog reloaded")

	return records, nil
}

// Invalidate drops the cached list so the next read reloads.
func (c *IPOCatalog) Invalidate() {
	c.cache.Invalidate(catalogCacheKey)
	logrus.WithField("component", "ipo_catalog").Info("Catalog cache invalidated")
}

// List returns canonical records matching filter, classified against the
// current clock, in source order.
func (c *IPOCatalog) List(ctx context.Context, filter CatalogFilter) ([]models.CanonicalIPO, error) {
	records, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	query := c.utility.NormalizeIPOName(filter.Query)
	out := make([]models.CanonicalIPO, 0, len(records))
	for _, record := range records {
		if filter.Status != "" && record.Classification.Status != filter.Status {
			continue
		}
		if filter.Window != models.WindowNone && record.Classification.Window != filter.Window {
			continue
		}
		if query != "" && !c.matchesQuery(record, query) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// Get returns the record with the given key or upstream id. The bool is
// false when no record matches.
func (c *IPOCatalog) Get(ctx context.Context, id string) (models.CanonicalIPO, bool, error) {
	records, err := c.current(ctx)
	if err != nil {
		return models.CanonicalIPO{}, false, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return models.CanonicalIPO{}, false, nil
	}
	for _, record := range records {
		if record.Key == id || record.ID == id {
			return record, true, nil
		}
	}
	return models.CanonicalIPO{}, false, nil
}

// Buckets groups the catalog the way listing pages show it.
func (c *IPOCatalog) Buckets(ctx context.Context) (models.IPOBuckets, error) {
	records, err := c.current(ctx)
	if err != nil {
		return models.IPOBuckets{}, err
	}
	return GroupIntoBuckets(records), nil
}

// GroupIntoBuckets splits classified records by status and window. Upcoming
// buckets are ordered by opening date; the rest keep input order.
func GroupIntoBuckets(records []models.CanonicalIPO) models.IPOBuckets {
	buckets := models.IPOBuckets{
		Open:       []models.CanonicalIPO{},
		ThisWeek:   []models.CanonicalIPO{},
		NextWeek:   []models.CanonicalIPO{},
		ComingSoon: []models.CanonicalIPO{},
		Closed:     []models.CanonicalIPO{},
		Listed:     []models.CanonicalIPO{},
		Unknown:    []models.CanonicalIPO{},
	}

	for _, record := range records {
		switch record.Classification.Status {
		case models.StatusOpen:
			buckets.Open = append(buckets.Open, record)
		case models.StatusClosed:
			buckets.Closed = append(buckets.Closed, record)
		case models.StatusListed:
			buckets.Listed = append(buckets.Listed, record)
		case models.StatusUpcoming:
			switch record.Classification.Window {
			case models.WindowThisWeek:
				buckets.ThisWeek = append(buckets.ThisWeek, record)
			case models.WindowNextWeek:
				buckets.NextWeek = append(buckets.NextWeek, record)
			default:
				buckets.ComingSoon = append(buckets.ComingSoon, record)
			}
		default:
			buckets.Unknown = append(buckets.Unknown, record)
		}
	}

	sortByOpenDate(buckets.ThisWeek)
	sortByOpenDate(buckets.NextWeek)
	sortByOpenDate(buckets.ComingSoon)
	return buckets
}

// current returns the cached list, reloading on a miss, with every record
// reclassified against now.
func (c *IPOCatalog) current(ctx context.Context) ([]models.CanonicalIPO, error) {
	records, ok := c.cached()
	if !ok {
		c.reloadMutex.Lock()
		records, ok = c.cached()
		if !ok {
			var err error
			records, err = c.reloadLocked(ctx)
			if err != nil {
				c.reloadMutex.Unlock()
				return nil, err
			}
		}
		c.reloadMutex.Unlock()
	}

	return Reclassify(records, c.normalizer.Clock().Now()), nil
}

func (c *IPOCatalog) cached() ([]models.CanonicalIPO, bool) {
	value, found := c.cache.Get(catalogCacheKey)
	if !found {
		return nil, false
	}
	records, ok := value.([]models.CanonicalIPO)
	return records, ok
}

func (c *IPOCatalog) sourceName() string {
	if c.source == nil {
		return "none"
	}
	return c.source.Name()
}

func (c *IPOCatalog) matchesQuery(record models.CanonicalIPO, query string) bool {
	if record.CompanyName != nil && strings.Contains(c.utility.NormalizeIPOName(*record.CompanyName), query) {
		return true
	}
	if record.Symbol != nil && strings.Contains(c.utility.NormalizeIPOName(*record.Symbol), query) {
		return true
	}
	return false
}

// Reclassify returns a copy of records with status and window recomputed
// against now. The input slice is not modified.
func Reclassify(records []models.CanonicalIPO, now time.Time) []models.CanonicalIPO {
	out := make([]models.CanonicalIPO, len(records))
	for i, record := range records {
		record.Classification = ClassifyDates(record.OpenDate, record.CloseDate, record.ListingDate, now)
		out[i] = record
	}
	return out
}

// recordKey prefers the upstream id and falls back to a UUID derived from
// the normalized company name. Records with neither get no key.
func (c *IPOCatalog) recordKey(record models.CanonicalIPO) string {
	if record.ID != "" {
		return record.ID
	}
	if record.CompanyName == nil {
		return ""
	}
	name := c.utility.NormalizeIPOName(*record.CompanyName)
	if name == "" {
		return ""
	}
	return uuid.NewSHA1(ipoNamespace, []byte(name)).String()
}

// dedupeByKey keeps the first record per key. Records without a key are all kept.
func dedupeByKey(records []models.CanonicalIPO) ([]models.CanonicalIPO, int) {
	seen := make(map[string]bool, len(records))
	out := make([]models.CanonicalIPO, 0, len(records))
	duplicates := 0
	for _, record := range records {
		if record.Key != "" {
			if seen[record.Key] {
				duplicates++
				continue
			}
			seen[record.Key] = true
		}
		out = append(out, record)
	}
	return out, duplicates
}

func sortByOpenDate(records []models.CanonicalIPO) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].OpenDate, records[j].OpenDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
