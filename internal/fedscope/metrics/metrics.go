// Package metrics collects in-process pipeline counters for the stats
// endpoint.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// PipelineMetrics tracks query, retrieval, model and ingestion activity.
type PipelineMetrics struct {
	queriesTotal   uint64
	queriesErrors  uint64
	repairedParses uint64
	parseErrors    uint64

	retrievalTotal    uint64
	retrievalErrors   uint64
	retrievalDuration float64 // seconds

	llmCallsTotal    uint64
	llmCallsErrors   uint64
	llmCallsDuration float64 // seconds

	chunksIngested   uint64
	collectionsBuilt uint64
	ingestErrors     uint64

	durationMu sync.Mutex
	startTime  time.Time
}

var (
	global *PipelineMetrics
	once   sync.Once
)

// Get returns the global metrics instance.
func Get() *PipelineMetrics {
	once.Do(func() {
		global = &PipelineMetrics{startTime: time.Now()}
	})
	return global
}

// RecordQuery records one analysis query.
func (m *PipelineMetrics) RecordQuery(err error) {
	atomic.AddUint64(&m.queriesTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.queriesErrors, 1)
	}
}

// RecordParseRepair records a model response that needed the repair pass.
func (m *PipelineMetrics) RecordParseRepair() {
	atomic.AddUint64(&m.repairedParses, 1)
}

// RecordParseError records a model response that could not be parsed at all.
func (m *PipelineMetrics) RecordParseError() {
	atomic.AddUint64(&m.parseErrors, 1)
}

// RecordRetrieval records one vector store retrieval.
func (m *PipelineMetrics) RecordRetrieval(duration time.Duration, err error) {
	atomic.AddUint64(&m.retrievalTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.retrievalErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordLLMCall records one chat or embedding invocation.
func (m *PipelineMetrics) RecordLLMCall(duration time.Duration, err error) {
	atomic.AddUint64(&m.llmCallsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.llmCallsErrors, 1)
		return
	}
	m.durationMu.Lock()
	m.llmCallsDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordIngestion records one collection build.
func (m *PipelineMetrics) RecordIngestion(chunks int, err error) {
	if err != nil {
		atomic.AddUint64(&m.ingestErrors, 1)
		return
	}
	atomic.AddUint64(&m.collectionsBuilt, 1)
	atomic.AddUint64(&m.chunksIngested, uint64(chunks))
}

// Stats returns the current counters for the stats endpoint.
func (m *PipelineMetrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	llmDuration := m.llmCallsDuration
	m.durationMu.Unlock()

	retrievalTotal := atomic.LoadUint64(&m.retrievalTotal)
	avgRetrieval := 0.0
	if retrievalTotal > 0 {
		avgRetrieval = retrievalDuration / float64(retrievalTotal)
	}

	llmTotal := atomic.LoadUint64(&m.llmCallsTotal)
	avgLLM := 0.0
	if llmTotal > 0 {
		avgLLM = llmDuration / float64(llmTotal)
	}

	return map[string]any{
		"queries": map[string]any{
			"total":           atomic.LoadUint64(&m.queriesTotal),
			"errors":          atomic.LoadUint64(&m.queriesErrors),
			"repaired_parses": atomic.LoadUint64(&m.repairedParses),
			"parse_errors":    atomic.LoadUint64(&m.parseErrors),
		},
		"retrieval": map[string]any{
			"total":               retrievalTotal,
			"total_duration_secs": retrievalDuration,
			"avg_duration_secs":   avgRetrieval,
			"errors":              atomic.LoadUint64(&m.retrievalErrors),
		},
		"llm": map[string]any{
			"calls_total":         llmTotal,
			"total_duration_secs": llmDuration,
			"avg_duration_secs":   avgLLM,
			"errors":              atomic.LoadUint64(&m.llmCallsErrors),
		},
		"ingestion": map[string]any{
			"collections_built": atomic.LoadUint64(&m.collectionsBuilt),
			"chunks_ingested":   atomic.LoadUint64(&m.chunksIngested),
			"errors":            atomic.LoadUint64(&m.ingestErrors),
		},
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

// Reset zeroes all counters. Test helper.
func (m *PipelineMetrics) Reset() {
	atomic.StoreUint64(&m.queriesTotal, 0)
	atomic.StoreUint64(&m.queriesErrors, 0)
	atomic.StoreUint64(&m.repairedParses, 0)
	atomic.StoreUint64(&m.parseErrors, 0)
	atomic.StoreUint64(&m.retrievalTotal, 0)
	atomic.StoreUint64(&m.retrievalErrors, 0)
	atomic.StoreUint64(&m.llmCallsTotal, 0)
	atomic.StoreUint64(&m.llmCallsErrors, 0)
	atomic.StoreUint64(&m.collectionsBuilt, 0)
	atomic.StoreUint64(&m.chunksIngested, 0)
	atomic.StoreUint64(&m.ingestErrors, 0)

	m.durationMu.Lock()
	m.retrievalDuration = 0
	m.llmCallsDuration = 0
	m.startTime = time.Now()
	m.durationMu.Unlock()
}
