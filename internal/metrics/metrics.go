package metrics

import (
	"sync"
	"time"
)

// Metrics aggregates batch outcomes across runs for the monitoring
// endpoint. One instance is created at startup and passed to the pipeline.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	Fetched    int64
	Accepted   int64
	Rejected   map[string]int64
	Deduped    int64
	Suppressed int64
	Persisted  int64
	Skipped    int64
	Enriched   int64
	FetchFails int64
	Fallbacks  map[string]int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

func New() *Metrics {
	return &Metrics{
		Rejected:  make(map[string]int64),
		Fallbacks: make(map[string]int64),
		IsHealthy: true,
	}
}

// Batch is the per-run delta recorded by RecordBatch.
type Batch struct {
	Fetched    int
	Accepted   int
	Rejected   map[string]int
	Deduped    int
	Suppressed int
	Persisted  int
	Skipped    int
	Enriched   int
	FetchFails int
}

func (m *Metrics) RecordBatch(b Batch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Fetched += int64(b.Fetched)
	m.Accepted += int64(b.Accepted)
	m.Deduped += int64(b.Deduped)
	m.Suppressed += int64(b.Suppressed)
	m.Persisted += int64(b.Persisted)
	m.Skipped += int64(b.Skipped)
	m.Enriched += int64(b.Enriched)
	m.FetchFails += int64(b.FetchFails)
	for reason, n := range b.Rejected {
		m.Rejected[reason] += int64(n)
	}
}

// IncrementFallback counts a semantic call that degraded to keywords.
func (m *Metrics) IncrementFallback(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fallbacks[kind]++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rejected := make(map[string]int64, len(m.Rejected))
	for k, v := range m.Rejected {
		rejected[k] = v
	}
	fallbacks := make(map[string]int64, len(m.Fallbacks))
	for k, v := range m.Fallbacks {
		fallbacks[k] = v
	}

	return map[string]interface{}{
		"fetched":                    m.Fetched,
		"accepted":                   m.Accepted,
		"rejected":                   rejected,
		"deduped":                    m.Deduped,
		"suppressed":                 m.Suppressed,
		"persisted":                  m.Persisted,
		"skipped":                    m.Skipped,
		"enriched":                   m.Enriched,
		"fetch_failures":             m.FetchFails,
		"classifier_fallbacks":       fallbacks,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
