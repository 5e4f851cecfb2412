// Package metrics provides performance instrumentation for roomlist.
//
// It records wall-clock timings around the engine operations (insert,
// load-older, touch, sort) and the worker's own sort time. Counters are
// kept with atomic operations; the most recent samples are retained for
// percentile summaries.
//
// Collection is enabled by default but can be disabled via ROOMLIST_METRICS=0.
//
// Usage:
//
//	func (e *Engine) InsertBatch(...) {
//	    defer metrics.Timer(metrics.InsertBatch)()
//	    // ... operation code
//	}
package metrics

import (
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// sampleWindow is how many recent samples each metric keeps for quantiles.
const sampleWindow = 512

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("ROOMLIST_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric tracks timing statistics for a named operation.
// All methods are safe for concurrent use.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means not set

	mu      sync.Mutex
	samples []float64 // ring of recent durations in ms
	next    int
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single timing measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() || m == nil {
		return
	}
	ns := d.Nanoseconds()

	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}

	ms := float64(ns) / 1e6
	m.mu.Lock()
	if len(m.samples) < sampleWindow {
		m.samples = append(m.samples, ms)
	} else {
		m.samples[m.next] = ms
		m.next = (m.next + 1) % sampleWindow
	}
	m.mu.Unlock()
}

// Name returns the metric name.
func (m *TimingMetric) Name() string {
	return m.name
}

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 {
	return m.count.Load()
}

// Stats returns all timing statistics at once.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	totalNs := m.totalNs.Load()

	var avgNs int64
	if count > 0 {
		avgNs = totalNs / count
	}

	st := TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(totalNs) / 1e6,
		AvgMs:   float64(avgNs) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}

	m.mu.Lock()
	samples := make([]float64, len(m.samples))
	copy(samples, m.samples)
	m.mu.Unlock()

	if len(samples) > 0 {
		sort.Float64s(samples)
		st.P50Ms = stat.Quantile(0.5, stat.Empirical, samples, nil)
		st.P95Ms = stat.Quantile(0.95, stat.Empirical, samples, nil)
		if len(samples) > 1 {
			st.StdDevMs = stat.StdDev(samples, nil)
		}
	}
	return st
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
	m.mu.Lock()
	m.samples = nil
	m.next = 0
	m.mu.Unlock()
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name     string  `json:"name"`
	Count    int64   `json:"count"`
	TotalMs  float64 `json:"total_ms"`
	AvgMs    float64 `json:"avg_ms"`
	MaxMs    float64 `json:"max_ms"`
	MinMs    float64 `json:"min_ms,omitempty"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	StdDevMs float64 `json:"stddev_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called.
// Use with defer for automatic timing:
//
//	func myFunc() {
//	    defer metrics.Timer(metrics.SomeMetric)()
//	    // ... function body
//	}
func Timer(m *TimingMetric) func() {
	if !enabled.Load() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// TimerWithCallback returns a function that records elapsed time
// and also calls the provided callback with the duration.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// Global timing metrics for the engine.
var (
	InsertBatch   = newTimingMetric("insert_batch")    // insert + sort request
	LoadOlder     = newTimingMetric("load_older")      // load more + sort request
	TouchRandom   = newTimingMetric("touch_random")    // touch + sort request
	SortLocal     = newTimingMetric("sort_local")      // in-thread sort
	SortRoundTrip = newTimingMetric("sort_round_trip") // issue to commit via worker
	WorkerSort    = newTimingMetric("worker_sort")     // sort time inside the worker
	SortCommit    = newTimingMetric("sort_commit")     // projection replace
	ChunkMutation = newTimingMetric("chunk_mutation")  // one chunk under the index lock
	UIRender      = newTimingMetric("ui_render")
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{
		InsertBatch,
		LoadOlder,
		TouchRandom,
		SortLocal,
		SortRoundTrip,
		WorkerSort,
		SortCommit,
		ChunkMutation,
		UIRender,
	}
}

// ResetAll resets all timing metrics.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for all timing metrics with data.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}
