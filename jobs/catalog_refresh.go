package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/services"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

type CatalogRefreshJob struct {
	Catalog *services.IPOCatalog
	Timeout time.Duration
}

func NewCatalogRefreshJob(catalog *services.IPOCatalog) *CatalogRefreshJob {
	return &CatalogRefreshJob{
		Catalog: catalog,
		Timeout: 5 * time.Minute,
	}
}

// RefreshSummary counts records by how complete their data is.
type RefreshSummary struct {
	Total           int `json:"total"`
	Complete        int `json:"complete"`
	Partial         int `json:"partial"`
	MissingCritical int `json:"missing_critical"`
}

// Run invalidates the catalog, reloads it and logs per-record completeness.
func (j *CatalogRefreshJob) Run(ctx context.Context) (RefreshSummary, error) {
	logrus.WithField("component", "catalog_refresh").Info("Starting Catalog Refresh Job")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()

	j.Catalog.Invalidate()
	records, err := j.Catalog.Reload(ctx)
	if err != nil {
		serviceErr := shared.WrapError(err, shared.ErrorCategoryProcessing, "CATALOG_REFRESH_FAILED", "catalog_refresh", "Run", true).
			WithDetails(map[string]interface{}{
				"duration": time.Since(startTime).String(),
				"timeout":  j.Timeout.String(),
			})
		serviceErr.LogError()
		return RefreshSummary{}, serviceErr
	}

	var summary RefreshSummary
	for _, record := range records {
		completeness := AnalyzeDataCompleteness(record)
		logFieldPopulation(record, completeness)

		summary.Total++
		switch {
		case !completeness.CriticalFieldsComplete:
			summary.MissingCritical++
		case completeness.OverallCompleteness >= 80.0:
			summary.Complete++
		default:
			summary.Partial++
		}
	}

	logrus.WithFields(logrus.Fields{
		"component":        "catalog_refresh",
		"total":            summary.Total,
		"complete":         summary.Complete,
		"partial":          summary.Partial,
		"missing_critical": summary.MissingCritical,
		"duration":         time.Since(startTime).String(),
	}).Infof("Catalog Refresh Job completed: %d records (%d complete, %d partial, %d missing critical fields)",
		summary.Total, summary.Complete, summary.Partial, summary.MissingCritical)
	j.Catalog.Metrics().LogSummary()

	return summary, nil
}

// DataCompleteness represents the completeness analysis of a canonical record
type DataCompleteness struct {
	TotalFields            int      `json:"total_fields"`
	PopulatedFields        int      `json:"populated_fields"`
	CriticalFields         int      `json:"critical_fields"`
	CriticalFieldsComplete bool     `json:"critical_fields_complete"`
	OverallCompleteness    float64  `json:"overall_completeness"`
	CriticalCompleteness   float64  `json:"critical_completeness"`
	MissingCriticalFields  []string `json:"missing_critical_fields"`
	MissingOptionalFields  []string `json:"missing_optional_fields"`
}

// AnalyzeDataCompleteness reports which canonical fields a record carries.
// Missing field lists follow display order.
func AnalyzeDataCompleteness(ipo models.CanonicalIPO) DataCompleteness {
	presence := ipo.FieldPresence()

	critical := make(map[models.CanonicalField]bool, len(models.CriticalFields))
	for _, field := range models.CriticalFields {
		critical[field] = true
	}

	var result DataCompleteness
	result.TotalFields = len(models.CanonicalFields)
	result.CriticalFields = len(models.CriticalFields)

	criticalPopulated := 0
	for _, field := range models.CanonicalFields {
		if presence[field] {
			result.PopulatedFields++
			if critical[field] {
				criticalPopulated++
			}
			continue
		}
		if critical[field] {
			result.MissingCriticalFields = append(result.MissingCriticalFields, string(field))
		} else {
			result.MissingOptionalFields = append(result.MissingOptionalFields, string(field))
		}
	}

	result.OverallCompleteness = float64(result.PopulatedFields) / float64(result.TotalFields) * 100
	result.CriticalCompleteness = float64(criticalPopulated) / float64(result.CriticalFields) * 100
	result.CriticalFieldsComplete = criticalPopulated == result.CriticalFields
	return result
}

// logFieldPopulation logs field population status
func logFieldPopulation(ipo models.CanonicalIPO, completeness DataCompleteness) {
	name := ipo.DisplayName()
	if name == "" {
		name = ipo.Key
	}

	logrus.WithFields(logrus.Fields{
		"component":             "catalog_refresh",
		"ipo_name":              name,
		"status":                ipo.Classification.Status,
		"overall_completeness":  completeness.OverallCompleteness,
		"critical_completeness": completeness.CriticalCompleteness,
		"populated_fields":      completeness.PopulatedFields,
		"total_fields":          completeness.TotalFields,
		"critical_fields_ok":    completeness.CriticalFieldsComplete,
	}).Debugf("IPO %s data analysis: %.1f%% complete", name, completeness.OverallCompleteness)

	if len(completeness.MissingCriticalFields) > 0 {
		logrus.WithFields(logrus.Fields{
			"component":      "catalog_refresh",
			"ipo_name":       name,
			"missing_fields": completeness.MissingCriticalFields,
		}).Warnf("IPO %s missing critical fields: %v", name, completeness.MissingCriticalFields)
	}
}
