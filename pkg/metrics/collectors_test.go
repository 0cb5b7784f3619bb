package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeCollector_CollectsAllFourMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewRuntimeCollector("netgraph_test", "runtime")
	require.NoError(t, reg.Register(collector))

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	assert.True(t, names["netgraph_test_runtime_runtime_goroutines"])
	assert.True(t, names["netgraph_test_runtime_runtime_memory_alloc_bytes"])
	assert.True(t, names["netgraph_test_runtime_runtime_memory_sys_bytes"])
	assert.True(t, names["netgraph_test_runtime_runtime_gc_runs_total"])
}

func TestTimer_StopRecordsObservation(t *testing.T) {
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_duration_seconds"})
	timer := NewTimer(hist)
	time.Sleep(time.Millisecond)
	d := timer.Stop()
	assert.Greater(t, d, time.Duration(0))
}

func TestTimer_NilObserverDoesNotPanic(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, func() { timer.Stop() })
}
