package audiocore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitMetrics_ReturnsSharedSingleton(t *testing.T) {
	m1 := InitMetrics()
	require.NotNil(t, m1)
	require.NotNil(t, m1.PoolExhausted)
	require.NotNil(t, m1.HardwareUnderruns)
	require.NotNil(t, m1.TickDuration)

	m2 := InitMetrics()
	require.Same(t, m1, m2)

	require.Same(t, m1, GetMetrics())
}

func TestLabeledCounter_WithLabelValuesSharesCounterPerKey(t *testing.T) {
	lc := newLabeledCounter()
	lc.WithLabelValues("src").Inc()
	lc.WithLabelValues("src").Inc()
	lc.WithLabelValues("other").Inc()

	require.Equal(t, int64(2), lc.WithLabelValues("src").Load())
	require.Equal(t, int64(1), lc.WithLabelValues("other").Load())
}

func TestHistogram_SnapshotComputesMean(t *testing.T) {
	h := &Histogram{}
	count, mean := h.Snapshot()
	require.Equal(t, int64(0), count)
	require.Equal(t, 0.0, mean)

	h.Observe(1)
	h.Observe(3)
	count, mean = h.Snapshot()
	require.Equal(t, int64(2), count)
	require.Equal(t, 2.0, mean)
}
