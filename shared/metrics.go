package shared

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ServiceMetrics tracks performance and success metrics for services
type ServiceMetrics struct {
	serviceName           string
	totalRequests         int64
	successfulRequests    int64
	failedRequests        int64
	totalProcessingTime   time.Duration
	averageProcessingTime time.Duration
	lastUpdated           time.Time
	customMetrics         map[string]interface{}
	performance           *PerformanceMetrics
	mutex                 sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of ServiceMetrics safe to serialize.
type MetricsSnapshot struct {
	ServiceName           string                 `json:"service_name"`
	TotalRequests         int64                  `json:"total_requests"`
	SuccessfulRequests    int64                  `json:"successful_requests"`
	FailedRequests        int64                  `json:"failed_requests"`
	SuccessRate           float64                `json:"success_rate"`
	TotalProcessingTime   time.Duration          `json:"total_processing_time"`
	AverageProcessingTime time.Duration          `json:"average_processing_time"`
	LastUpdated           time.Time              `json:"last_updated"`
	CustomMetrics         map[string]interface{} `json:"custom_metrics"`
	Performance           PerformanceSnapshot    `json:"performance"`
}

// NewServiceMetrics creates a new metrics tracker for a service
func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		serviceName:   serviceName,
		lastUpdated:   time.Now(),
		customMetrics: make(map[string]interface{}),
		performance:   NewPerformanceMetrics(),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRequests++
	m.totalProcessingTime += processingTime
	m.averageProcessingTime = time.Duration(int64(m.totalProcessingTime) / m.totalRequests)

	if success {
		m.successfulRequests++
	} else {
		m.failedRequests++
	}

	m.lastUpdated = time.Now()
	m.performance.RecordProcessingTime(processingTime)
}

// GetSuccessRate returns the success rate as a percentage
func (m *ServiceMetrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.successRateLocked()
}

func (m *ServiceMetrics) successRateLocked() float64 {
	if m.totalRequests == 0 {
		return 0.0
	}
	return float64(m.successfulRequests) / float64(m.totalRequests) * 100.0
}

// SetCustomMetric sets a custom metric value
func (m *ServiceMetrics) SetCustomMetric(key string, value interface{}) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.customMetrics[key] = value
	m.lastUpdated = time.Now()
}

// IncrementCustomCounter increments a custom counter metric
func (m *ServiceMetrics) IncrementCustomCounter(key string) {
	m.AddToCustomCounter(key, 1)
}

// AddToCustomCounter adds delta to a custom counter metric
func (m *ServiceMetrics) AddToCustomCounter(key string, delta int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if counter, ok := m.customMetrics[key].(int64); ok {
		m.customMetrics[key] = counter + delta
	} else {
		m.customMetrics[key] = delta
	}

	m.lastUpdated = time.Now()
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *ServiceMetrics) GetSnapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	customMetricsCopy := make(map[string]interface{}, len(m.customMetrics))
	for k, v := range m.customMetrics {
		customMetricsCopy[k] = v
	}

	return MetricsSnapshot{
		ServiceName:           m.serviceName,
		TotalRequests:         m.totalRequests,
		SuccessfulRequests:    m.successfulRequests,
		FailedRequests:        m.failedRequests,
		SuccessRate:           m.successRateLocked(),
		TotalProcessingTime:   m.totalProcessingTime,
		AverageProcessingTime: m.averageProcessingTime,
		LastUpdated:           m.lastUpdated,
		CustomMetrics:         customMetricsCopy,
		Performance:           m.performance.GetPerformanceSnapshot(),
	}
}

// LogSummary logs a metrics summary
func (m *ServiceMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"service_name":            snapshot.ServiceName,
		"total_requests":          snapshot.TotalRequests,
		"successful_requests":     snapshot.SuccessfulRequests,
		"failed_requests":         snapshot.FailedRequests,
		"success_rate":            snapshot.SuccessRate,
		"average_processing_time": snapshot.AverageProcessingTime,
		"p95_processing_time":     snapshot.Performance.P95ProcessingTime,
		"p99_processing_time":     snapshot.Performance.P99ProcessingTime,
		"custom_metrics":          snapshot.CustomMetrics,
	}).Info("Service metrics summary")
}

// Reset resets all metrics to zero
func (m *ServiceMetrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRequests = 0
	m.successfulRequests = 0
	m.failedRequests = 0
	m.totalProcessingTime = 0
	m.averageProcessingTime = 0
	m.lastUpdated = time.Now()
	m.customMetrics = make(map[string]interface{})
	m.performance = NewPerformanceMetrics()

	logrus.WithField("service_name", m.serviceName).Info("Service metrics reset")
}

// PerformanceMetrics keeps the last 1000 processing times for percentiles
type PerformanceMetrics struct {
	mutex           sync.RWMutex
	min             time.Duration
	max             time.Duration
	p95             time.Duration
	p99             time.Duration
	processingTimes []time.Duration
}

// PerformanceSnapshot is a copy of the computed latency figures.
type PerformanceSnapshot struct {
	MinProcessingTime time.Duration `json:"min_processing_time"`
	MaxProcessingTime time.Duration `json:"max_processing_time"`
	P95ProcessingTime time.Duration `json:"p95_processing_time"`
	P99ProcessingTime time.Duration `json:"p99_processing_time"`
	Samples           int           `json:"samples"`
}

// NewPerformanceMetrics creates an empty latency tracker
func NewPerformanceMetrics() *PerformanceMetrics {
	return &PerformanceMetrics{
		processingTimes: make([]time.Duration, 0, 1000),
	}
}

// RecordProcessingTime adds a sample and refreshes the percentiles
func (pm *PerformanceMetrics) RecordProcessingTime(duration time.Duration) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if pm.min == 0 || duration < pm.min {
		pm.min = duration
	}
	if duration > pm.max {
		pm.max = duration
	}

	if len(pm.processingTimes) >= 1000 {
		pm.processingTimes = pm.processingTimes[1:]
	}
	pm.processingTimes = append(pm.processingTimes, duration)

	pm.calculatePercentiles()
}

func (pm *PerformanceMetrics) calculatePercentiles() {
	if len(pm.processingTimes) == 0 {
		return
	}

	times := make([]time.Duration, len(pm.processingTimes))
	copy(times, pm.processingTimes)
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	p95Index := int(float64(len(times)) * 0.95)
	p99Index := int(float64(len(times)) * 0.99)

	if p95Index >= len(times) {
		p95Index = len(times) - 1
	}
	if p99Index >= len(times) {
		p99Index = len(times) - 1
	}

	pm.p95 = times[p95Index]
	pm.p99 = times[p99Index]
}

// GetPerformanceSnapshot returns the current latency figures
func (pm *PerformanceMetrics) GetPerformanceSnapshot() PerformanceSnapshot {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	return PerformanceSnapshot{
		MinProcessingTime: pm.min,
		MaxProcessingTime: pm.max,
		P95ProcessingTime: pm.p95,
		P99ProcessingTime: pm.p99,
		Samples:           len(pm.processingTimes),
	}
}

// HTTPMetrics tracks HTTP client performance and success rates
type HTTPMetrics struct {
	mutex             sync.RWMutex
	totalRequests     int64
	successfulRequest int64
	failedRequests    int64
	retryAttempts     int64
	timeouts          int64
	statusCodes       map[int]int64
}

// HTTPMetricsSnapshot is a copy of the HTTP counters.
type HTTPMetricsSnapshot struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	RetryAttempts      int64         `json:"retry_attempts"`
	Timeouts           int64         `json:"timeouts"`
	StatusCodes        map[int]int64 `json:"status_codes"`
}

// NewHTTPMetrics creates an empty HTTP metrics tracker
func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{statusCodes: make(map[int]int64)}
}

// RecordHTTPRequest records the outcome of one HTTP attempt
func (hm *HTTPMetrics) RecordHTTPRequest(success bool, statusCode int, isTimeout bool) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.totalRequests++
	if success {
		hm.successfulRequest++
	} else {
		hm.failedRequests++
	}
	if statusCode > 0 {
		hm.statusCodes[statusCode]++
	}
	if isTimeout {
		hm.timeouts++
	}
}

// RecordRetryAttempt counts a retry
func (hm *HTTPMetrics) RecordRetryAttempt() {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()
	hm.retryAttempts++
}

// GetSnapshot returns a copy of the HTTP counters
func (hm *HTTPMetrics) GetSnapshot() HTTPMetricsSnapshot {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	codes := make(map[int]int64, len(hm.statusCodes))
	for code, count := range hm.statusCodes {
		codes[code] = count
	}

	return HTTPMetricsSnapshot{
		TotalRequests:      hm.totalRequests,
		SuccessfulRequests: hm.successfulRequest,
		FailedRequests:     hm.failedRequests,
		RetryAttempts:      hm.retryAttempts,
		Timeouts:           hm.timeouts,
		StatusCodes:        codes,
	}
}
