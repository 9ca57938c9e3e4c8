package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/fenilmodi00/ipo-display/models"
	"github.com/fenilmodi00/ipo-display/shared"
	"github.com/sirupsen/logrus"
)

// RecordSource supplies raw IPO records from one upstream.
type RecordSource interface {
	Name() string
	LoadRecords(ctx context.Context) ([]models.RawIPORecord, error)
}

// wrapperKeys are the object keys a feed may nest its record array under.
var wrapperKeys = []string{"ipos", "data", "records", "items"}

// DecodeRecordPayload accepts a top-level array, an object wrapping an array
// under a known key, or a single object. Malformed JSON is repaired once
// before giving up.
func DecodeRecordPayload(data []byte) ([]models.RawIPORecord, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("decode records: empty payload")
	}

	records, err := decodeRecords(data)
	if err == nil {
		return records, nil
	}

	repaired, repairErr := jsonrepair.RepairJSON(string(data))
	if repairErr != nil {
		return nil, fmt.Errorf("decode records: %w", errors.Join(err, repairErr))
	}

	records, retryErr := decodeRecords([]byte(repaired))
	if retryErr != nil {
		return nil, fmt.Errorf("decode repaired records: %w", retryErr)
	}

	logrus.WithField("component", "RecordSource").Warn("Decoded records after repairing malformed JSON")
	return records, nil
}

func decodeRecords(data []byte) ([]models.RawIPORecord, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.New("empty payload")
	}

	var payload interface{}
	decoder := json.NewDecoder(strings.NewReader(trimmed))
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, errors.New("trailing data after JSON value")
	}

	switch value := payload.(type) {
	case []interface{}:
		return recordsFromArray(value), nil
	case map[string]interface{}:
		for _, key := range wrapperKeys {
			if inner, ok := value[key].([]interface{}); ok {
				return recordsFromArray(inner), nil
			}
		}
		return []models.RawIPORecord{models.RawIPORecord(value)}, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}

// recordsFromArray keeps objects and drops scalars mixed into the array.
func recordsFromArray(items []interface{}) []models.RawIPORecord {
	records := make([]models.RawIPORecord, 0, len(items))
	for _, item := range items {
		if object, ok := item.(map[string]interface{}); ok {
			records = append(records, models.RawIPORecord(object))
		}
	}
	return records
}

// MultiSource concatenates several sources in order. A failing source is
// logged and skipped; the call fails only when every source fails.
type MultiSource struct {
	sources []RecordSource
	metrics *shared.ServiceMetrics
}

// NewMultiSource creates a source over the given sources, skipping nils.
func NewMultiSource(sources ...RecordSource) *MultiSource {
	kept := make([]RecordSource, 0, len(sources))
	for _, source := range sources {
		if source != nil {
			kept = append(kept, source)
		}
	}
	return &MultiSource{sources: kept, metrics: shared.NewServiceMetrics("Multi_Source")}
}

// Name lists the underlying sources.
func (m *MultiSource) Name() string {
	names := make([]string, 0, len(m.sources))
	for _, source := range m.sources {
		names = append(names, source.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Sources returns the wrapped sources.
func (m *MultiSource) Sources() []RecordSource {
	return m.sources
}

// LoadRecords loads every source in order.
func (m *MultiSource) LoadRecords(ctx context.Context) ([]models.RawIPORecord, error) {
	if len(m.sources) == 0 {
		return nil, nil
	}

	var all []models.RawIPORecord
	var sampleErrors []error
	failures := 0

	for _, source := range m.sources {
		start := time.Now()
		records, err := source.LoadRecords(ctx)
		m.metrics.RecordRequest(err == nil, time.Since(start))
		if err != nil {
			failures++
			sampleErrors = append(sampleErrors, fmt.Errorf("%s: %w", source.Name(), err))
			logrus.WithFields(logrus.Fields{
				"component": "MultiSource",
				"source":    source.Name(),
				"error":     err.Error(),
			}).Warn("Record source failed, continuing with remaining sources")
			continue
		}

		m.metrics.AddToCustomCounter("records_"+source.Name(), int64(len(records)))
		all = append(all, records...)
	}

	if failures == len(m.sources) {
		summary := shared.BuildBatchProcessingErrorSummary(0, failures, sampleErrors)
		return nil, shared.NewServiceError(shared.ErrorCategoryProcessing, "ALL_SOURCES_FAILED", summary, "MultiSource", "LoadRecords", true, errors.Join(sampleErrors...))
	}

	return all, nil
}

// Metrics returns per-source load counters.
func (m *MultiSource) Metrics() *shared.ServiceMetrics {
	return m.metrics
}
