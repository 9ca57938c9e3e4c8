package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/sirupsen/logrus"
)

// RecordStore persists raw records under a source name.
type RecordStore interface {
	StoreRecords(ctx context.Context, source string, records []models.RawIPORecord) (int, error)
}

// HTMLIngestJob scrapes detail pages and stores the extracted raw records
// so the catalog can serve them without re-scraping.
type HTMLIngestJob struct {
	Source  services.RecordSource
	Store   RecordStore
	Catalog *services.IPOCatalog
	Timeout time.Duration
}

func NewHTMLIngestJob(source services.RecordSource, store RecordStore, catalog *services.IPOCatalog) *HTMLIngestJob {
	return &HTMLIngestJob{
		Source:  source,
		Store:   store,
		Catalog: catalog,
		Timeout: 15 * time.Minute,
	}
}

// Run scrapes, stores and invalidates the catalog. Returns the number of
// stored records.
func (j *HTMLIngestJob) Run(ctx context.Context) (int, error) {
	startTime := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"component": "html_ingest",
		"source":    j.Source.Name(),
	})
	logger.Info("Running HTML Ingest Job")

	ctx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	records, err := j.Source.LoadRecords(ctx)
	if err != nil {
		logger.Errorf("HTML Ingest Job failed: error scraping pages: %v", err)
		return 0, fmt.Errorf("scrape %s: %w", j.Source.Name(), err)
	}

	if len(records) == 0 {
		logger.Warn("HTML Ingest Job: no records extracted from source")
		return 0, nil
	}

	stored, err := j.Store.StoreRecords(ctx, j.Source.Name(), records)
	if err != nil {
		logger.Errorf("HTML Ingest Job failed: error storing records: %v", err)
		return stored, fmt.Errorf("store records: %w", err)
	}

	if j.Catalog != nil {
		j.Catalog.Invalidate()
	}

	logger.WithFields(logrus.Fields{
		"extracted": len(records),
		"stored":    stored,
	}).Infof("HTML Ingest Job completed successfully: stored %d records (took %v)", stored, time.Since(startTime))

	return stored, nil
}
