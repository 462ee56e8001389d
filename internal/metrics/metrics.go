package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	EntriesFetched     int64
	SourcesFailed      int64
	EntriesStale       int64
	EntriesUndated     int64
	IdentityDuplicates int64
	TopicDuplicates    int64
	EntriesAdmitted    int64
	EmbeddingFallbacks int64
	SummariesFailed    int64
	MessagesSent       int64

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

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

func (m *Metrics) add(field *int64, n int) {
	if n == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	*field += int64(n)
}

func (m *Metrics) AddEntriesFetched(n int) {
	m.add(&m.EntriesFetched, n)
}

func (m *Metrics) AddSourcesFailed(n int) {
	m.add(&m.SourcesFailed, n)
}

func (m *Metrics) AddEntriesStale(n int) {
	m.add(&m.EntriesStale, n)
}

func (m *Metrics) AddEntriesUndated(n int) {
	m.add(&m.EntriesUndated, n)
}

func (m *Metrics) IncrementIdentityDuplicates() {
	m.add(&m.IdentityDuplicates, 1)
}

func (m *Metrics) IncrementTopicDuplicates() {
	m.add(&m.TopicDuplicates, 1)
}

func (m *Metrics) IncrementAdmitted() {
	m.add(&m.EntriesAdmitted, 1)
}

func (m *Metrics) IncrementEmbeddingFallbacks() {
	m.add(&m.EmbeddingFallbacks, 1)
}

func (m *Metrics) IncrementSummariesFailed() {
	m.add(&m.SummariesFailed, 1)
}

func (m *Metrics) IncrementMessagesSent() {
	m.add(&m.MessagesSent, 1)
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

	return map[string]interface{}{
		"entries_fetched":            m.EntriesFetched,
		"sources_failed":             m.SourcesFailed,
		"entries_stale":              m.EntriesStale,
		"entries_undated":            m.EntriesUndated,
		"identity_duplicates":        m.IdentityDuplicates,
		"topic_duplicates":           m.TopicDuplicates,
		"entries_admitted":           m.EntriesAdmitted,
		"embedding_fallbacks":        m.EmbeddingFallbacks,
		"summaries_failed":           m.SummariesFailed,
		"messages_sent":              m.MessagesSent,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}
