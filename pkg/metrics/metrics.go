// Package metrics provides Prometheus instrumentation for the compressed
// array engine. It offers collectors for chunk sealing, decompression, cache
// behavior and expression evaluation.
//
// # Basic Usage
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//
//	arr, err := carray.New[int64](cfg, carray.WithMetrics(m))
//
// Every collector is registered against the registerer passed to New, never
// the global default registry, so several engines in one process can each
// own their metrics.
//
// # Nil collectors
//
// A nil *Metrics is valid and records nothing. Engine components hold a
// *Metrics unconditionally and call it without checks.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name
const Namespace = "carray"

// Metrics holds the engine collectors
type Metrics struct {
	chunksSealed       *prometheus.CounterVec // Chunks sealed, by codec
	chunksDecompressed *prometheus.CounterVec // Chunks decompressed, by codec
	cacheHits          prometheus.Counter     // Chunk cache hits
	cacheMisses        prometheus.Counter     // Chunk cache misses
	bytesUncompressed  prometheus.Counter     // Raw bytes fed to codecs
	bytesCompressed    prometheus.Counter     // Payload bytes produced by codecs
	evaluationDuration prometheus.Histogram   // Expression evaluation latency
	selected           prometheus.Counter     // Positions produced by mask selection
}

// New registers the engine collectors with reg and returns them
//
// Example:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		chunksSealed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "chunks_sealed_total",
				Help:      "Total number of chunks sealed",
			},
			[]string{"codec"},
		),
		chunksDecompressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "chunks_decompressed_total",
				Help:      "Total number of chunks decompressed",
			},
			[]string{"codec"},
		),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_hits_total",
			Help:      "Chunk reads served from the decompression cache",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cache_misses_total",
			Help:      "Chunk reads that required decompression",
		}),
		bytesUncompressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_uncompressed_total",
			Help:      "Raw bytes passed to codecs when sealing",
		}),
		bytesCompressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "bytes_compressed_total",
			Help:      "Payload bytes produced by codecs when sealing",
		}),
		evaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Expression evaluation latency in seconds",
			Buckets: []float64{
				1e-5, // 10μs - Single small chunk
				1e-4, // 100μs
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms - Millions of rows
				1,    // 1s
				10,   // 10s
			},
		}),
		selected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "selected_positions_total",
			Help:      "Positions produced by mask selection",
		}),
	}
}

// ChunkSealed records one sealed chunk
func (m *Metrics) ChunkSealed(codec string, raw, compressed int) {
	if m == nil {
		return
	}
	m.chunksSealed.WithLabelValues(codec).Inc()
	m.bytesUncompressed.Add(float64(raw))
	m.bytesCompressed.Add(float64(compressed))
}

// ChunkDecompressed records one chunk decompression
func (m *Metrics) ChunkDecompressed(codec string) {
	if m == nil {
		return
	}
	m.chunksDecompressed.WithLabelValues(codec).Inc()
}

// CacheHit records a chunk read served from cache
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss records a chunk read that had to decompress
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// ObserveEvaluation records the duration of one expression evaluation
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.evaluationDuration.Observe(d.Seconds())
}

// Selected records n positions produced by a mask selection
func (m *Metrics) Selected(n int) {
	if m == nil {
		return
	}
	m.selected.Add(float64(n))
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the label the timer was created with
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. The timer can be stopped
// multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// LatencyTracker keeps the most recent maxSize durations and reports
// percentiles over them. Safe for concurrent use.
type LatencyTracker struct {
	mu      sync.Mutex
	values  []time.Duration
	maxSize int
}

// NewLatencyTracker creates a new latency tracker
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize < 1 {
		maxSize = 1
	}
	return &LatencyTracker{
		values:  make([]time.Duration, 0, maxSize),
		maxSize: maxSize,
	}
}

// Record records a latency value
func (l *LatencyTracker) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.values) >= l.maxSize {
		l.values = l.values[1:]
	}
	l.values = append(l.values, d)
}

// Count returns the number of retained samples
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.values)
}

// Percentile returns the nearest-rank percentile (0-100) of the retained samples
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.Lock()
	sorted := make([]time.Duration, len(l.values))
	copy(sorted, l.values)
	l.mu.Unlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)) * p / 100)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	if index < 0 {
		index = 0
	}
	return sorted[index]
}
