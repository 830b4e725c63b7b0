package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ChunkSealed("lz4", 800, 120)
	m.ChunkSealed("lz4", 800, 100)
	m.ChunkSealed("zstd", 400, 50)
	m.ChunkDecompressed("lz4")
	m.CacheHit()
	m.CacheHit()
	m.CacheMiss()
	m.Selected(7)
	m.ObserveEvaluation(3 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunksSealed.WithLabelValues("lz4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunksSealed.WithLabelValues("zstd")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunksDecompressed.WithLabelValues("lz4")))
	assert.Equal(t, 2000.0, testutil.ToFloat64(m.bytesUncompressed))
	assert.Equal(t, 270.0, testutil.ToFloat64(m.bytesCompressed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.selected))

	count, err := testutil.GatherAndCount(reg, "carray_evaluation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMetricsSeparateRegistries(t *testing.T) {
	// two engines in one process must not collide on registration
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.CacheMiss()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.cacheMisses))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.cacheMisses))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChunkSealed("lz4", 1, 1)
		m.ChunkDecompressed("lz4")
		m.CacheHit()
		m.CacheMiss()
		m.Selected(1)
		m.ObserveEvaluation(time.Second)
	})
}

func TestTimer(t *testing.T) {
	timer := NewTimer("select")
	assert.Equal(t, "select", timer.Name())
	first := timer.Stop()
	second := timer.Stop()
	assert.GreaterOrEqual(t, second, first)
}

func TestLatencyTracker(t *testing.T) {
	lt := NewLatencyTracker(4)
	assert.Equal(t, time.Duration(0), lt.Percentile(50))

	for _, d := range []time.Duration{5, 1, 4, 2, 3} {
		lt.Record(d * time.Millisecond)
	}
	// the oldest sample (5ms) has been evicted
	assert.Equal(t, 4, lt.Count())
	assert.Equal(t, 1*time.Millisecond, lt.Percentile(0))
	assert.Equal(t, 3*time.Millisecond, lt.Percentile(50))
	assert.Equal(t, 4*time.Millisecond, lt.Percentile(100))
}
