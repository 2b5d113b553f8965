package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	SectionRequests         int64
	SourceFetches           int64
	SourceFailures          int64
	ArticlesSeen            int64
	DuplicatesFiltered      int64
	CacheHits               int64
	CacheMisses             int64
	EnrichmentsSucceeded    int64
	EnrichmentsFailed       int64
	EnrichmentCacheHits     int64
	DeadLetteredTasks       int64
	BackgroundContinuations int64

	// Timings
	LastAggregationTime    time.Duration
	TotalAggregationTime   time.Duration
	AverageAggregationTime time.Duration
	AggregationCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) IncrementSectionRequests() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SectionRequests++
}

func (m *Metrics) IncrementSourceFetches() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFetches++
}

func (m *Metrics) IncrementSourceFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures++
}

func (m *Metrics) AddArticlesSeen(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSeen += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) IncrementEnrichmentsSucceeded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsSucceeded++
}

func (m *Metrics) IncrementEnrichmentsFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentsFailed++
}

func (m *Metrics) IncrementEnrichmentCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnrichmentCacheHits++
}

func (m *Metrics) IncrementDeadLetteredTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeadLetteredTasks++
}

func (m *Metrics) IncrementBackgroundContinuations() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BackgroundContinuations++
}

func (m *Metrics) RecordAggregationTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastAggregationTime = duration
	m.TotalAggregationTime += duration
	m.AggregationCount++

	if m.AggregationCount > 0 {
		m.AverageAggregationTime = m.TotalAggregationTime / time.Duration(m.AggregationCount)
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

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"section_requests":         m.SectionRequests,
		"source_fetches":           m.SourceFetches,
		"source_failures":          m.SourceFailures,
		"articles_seen":            m.ArticlesSeen,
		"duplicates_filtered":      m.DuplicatesFiltered,
		"cache_hits":               m.CacheHits,
		"cache_misses":             m.CacheMisses,
		"enrichments_succeeded":    m.EnrichmentsSucceeded,
		"enrichments_failed":       m.EnrichmentsFailed,
		"enrichment_cache_hits":    m.EnrichmentCacheHits,
		"dead_lettered_tasks":      m.DeadLetteredTasks,
		"background_continuations": m.BackgroundContinuations,
		"last_aggregation_ms":      m.LastAggregationTime.Milliseconds(),
		"average_aggregation_ms":   m.AverageAggregationTime.Milliseconds(),
		"last_run_time":            m.LastRunTime.Format(time.RFC3339),
		"last_error_time":          m.LastErrorTime.Format(time.RFC3339),
		"last_error":               m.LastError,
		"is_healthy":               m.IsHealthy,
	}
}
