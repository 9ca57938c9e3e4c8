package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-display/services"
	"github.com/sirupsen/logrus"
)

// RecordPurger deletes stored raw records older than maxAge.
type RecordPurger interface {
	PurgeOlderThan(ctx context.Context, maxAge time.Duration) (int64, error)
}

type CacheCleanupJob struct {
	Cache  *services.RecordCache
	Purger RecordPurger
	MaxAge time.Duration
}

func NewCacheCleanupJob(cache *services.RecordCache, purger RecordPurger, maxAge time.Duration) *CacheCleanupJob {
	return &CacheCleanupJob{Cache: cache, Purger: purger, MaxAge: maxAge}
}

// Run drops expired cache entries and, when a purger is set, stale stored records.
func (j *CacheCleanupJob) Run(ctx context.Context) {
	logger := logrus.WithField("component", "cache_cleanup")
	logger.Info("Starting Cache Cleanup Job")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	removed := j.Cache.RemoveExpired()

	var purged int64
	if j.Purger != nil && j.MaxAge > 0 {
		var err error
		purged, err = j.Purger.PurgeOlderThan(ctx, j.MaxAge)
		if err != nil {
			logger.Errorf("Failed to purge stored records: %v", err)
		}
	}

	logger.WithFields(logrus.Fields{
		"cache_entries_removed": removed,
		"stored_records_purged": purged,
	}).Info("Cache Cleanup Job completed")
}
