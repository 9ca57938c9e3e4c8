package shared

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestServiceMetrics(t *testing.T) {
	metrics := NewServiceMetrics("catalog")
	metrics.RecordRequest(true, 10*time.Millisecond)
	metrics.RecordRequest(true, 20*time.Millisecond)
	metrics.RecordRequest(true, 30*time.Millisecond)
	metrics.RecordRequest(false, 40*time.Millisecond)
	metrics.IncrementCustomCounter("reloads")
	metrics.AddToCustomCounter("reloads", 4)
	metrics.SetCustomMetric("last_source", "file")

	snapshot := metrics.GetSnapshot()
	assert.Equal(t, "catalog", snapshot.ServiceName)
	assert.Equal(t, int64(4), snapshot.TotalRequests)
	assert.Equal(t, int64(1), snapshot.FailedRequests)
	assert.Equal(t, 75.0, snapshot.SuccessRate)
	assert.Equal(t, 25*time.Millisecond, snapshot.AverageProcessingTime)
	assert.Equal(t, int64(5), snapshot.CustomMetrics["reloads"])
	assert.Equal(t, "file", snapshot.CustomMetrics["last_source"])
	assert.Equal(t, 10*time.Millisecond, snapshot.Performance.MinProcessingTime)
	assert.Equal(t, 40*time.Millisecond, snapshot.Performance.MaxProcessingTime)

	snapshot.CustomMetrics["reloads"] = int64(99)
	assert.Equal(t, int64(5), metrics.GetSnapshot().CustomMetrics["reloads"])

	metrics.Reset()
	assert.Zero(t, metrics.GetSuccessRate())
	assert.Empty(t, metrics.GetSnapshot().CustomMetrics)
}

func TestPerformancePercentiles(t *testing.T) {
	perf := NewPerformanceMetrics()
	for i := 1; i <= 100; i++ {
		perf.RecordProcessingTime(time.Duration(i) * time.Millisecond)
	}

	snapshot := perf.GetPerformanceSnapshot()
	assert.Equal(t, 100, snapshot.Samples)
	assert.Equal(t, 96*time.Millisecond, snapshot.P95ProcessingTime)
	assert.Equal(t, 100*time.Millisecond, snapshot.P99ProcessingTime)
}

func TestPerformanceWindowIsBounded(t *testing.T) {
	perf := NewPerformanceMetrics()
	for i := 0; i < 1200; i++ {
		perf.RecordProcessingTime(time.Millisecond)
	}
	assert.Equal(t, 1000, perf.GetPerformanceSnapshot().Samples)
}

func TestPerformanceOrderingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("min <= p95 <= p99 <= max", prop.ForAll(
		func(samples []int64) bool {
			perf := NewPerformanceMetrics()
			for _, sample := range samples {
				perf.RecordProcessingTime(time.Duration(sample) * time.Microsecond)
			}
			s := perf.GetPerformanceSnapshot()
			return s.MinProcessingTime <= s.P95ProcessingTime &&
				s.P95ProcessingTime <= s.P99ProcessingTime &&
				s.P99ProcessingTime <= s.MaxProcessingTime
		},
		gen.SliceOfN(50, gen.Int64Range(1, 1_000_000)),
	))

	properties.TestingRun(t)
}
