// Package metrics collects in-process pipeline counters for the stats
// endpoint.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// PipelineMetrics holds counters for the query and ingestion pipelines.
type PipelineMetrics struct {
	queriesTotal       uint64
	queriesCacheHits   uint64
	queriesCacheMisses uint64
	queriesErrors      uint64

	retrievalTotal  uint64
	retrievalErrors uint64

	llmCallsTotal  uint64
	llmCallsErrors uint64

	documentsIndexed uint64
	chunksIndexed    uint64
	indexErrors      uint64

	retrievalSeconds float64
	llmSeconds       float64
	durationMu       sync.Mutex

	startTime time.Time
}

var (
	global *PipelineMetrics
	once   sync.Once
)

// Get returns the process-wide metrics instance.
func Get() *PipelineMetrics {
	once.Do(func() {
		global = &PipelineMetrics{startTime: time.Now()}
	})
	return global
}

// RecordQuery records one chat query outcome.
func (m *PipelineMetrics) RecordQuery(cacheHit bool, err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
		return
	}
	if cacheHit {
		atomic.AddUint64(&m.queriesCacheHits, 1)
	} else {
		atomic.AddUint64(&m.queriesCacheMisses, 1)
	}
}

// RecordRetrieval records one retrieval round trip.
func (m *PipelineMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.retrievalSeconds += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall records one completion call.
func (m *PipelineMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}

	m.durationMu.Lock()
	m.llmSeconds += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIndex records one document ingestion.
func (m *PipelineMetrics) RecordIndex(chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.indexErrors, 1)
		return
	}
	atomic.AddUint64(&m.documentsIndexed, 1)
	atomic.AddUint64(&m.chunksIndexed, uint64(chunks))
}

// Stats returns a snapshot of all counters.
func (m *PipelineMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalSeconds := m.retrievalSeconds
	llmSeconds := m.llmSeconds
	m.durationMu.Unlock()

	return map[string]any{
		"queries_total":        atomic.LoadUint64(&m.queriesTotal),
		"queries_cache_hits":   atomic.LoadUint64(&m.queriesCacheHits),
		"queries_cache_misses": atomic.LoadUint64(&m.queriesCacheMisses),
		"queries_errors":       atomic.LoadUint64(&m.queriesErrors),
		"retrieval_total":      atomic.LoadUint64(&m.retrievalTotal),
		"retrieval_errors":     atomic.LoadUint64(&m.retrievalErrors),
		"retrieval_seconds":    retrievalSeconds,
		"llm_calls_total":      atomic.LoadUint64(&m.llmCallsTotal),
		"llm_calls_errors":     atomic.LoadUint64(&m.llmCallsErrors),
		"llm_seconds":          llmSeconds,
		"documents_indexed":    atomic.LoadUint64(&m.documentsIndexed),
		"chunks_indexed":       atomic.LoadUint64(&m.chunksIndexed),
		"index_errors":         atomic.LoadUint64(&m.indexErrors),
		"uptime_seconds":       time.Since(m.startTime).Seconds(),
	}
}

// Reset zeroes all counters. Intended for tests.
func (m *PipelineMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesCacheHits, 0)
	atomic.StoreUint64(&m.queriesCacheMisses, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.documentsIndexed, 0)
	atomic.StoreUint64(&m.chunksIndexed, 0)
	atomic.StoreUint64(&m.indexErrors, 0)

	m.durationMu.Lock()
	m.retrievalSeconds = 0
	m.llmSeconds = 0
	m.durationMu.Unlock()
}
