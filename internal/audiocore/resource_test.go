package audiocore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckForLeaks_EmptyWhenEveryBufferReturned(t *testing.T) {
	pool := NewBufferPool()
	pool.Reserve(testFormat(), 128, 4)

	buf, err := pool.Acquire(testFormat(), 128)
	require.NoError(t, err)
	buf.Release()

	report := CheckForLeaks(pool)
	require.True(t, report.Empty())
}

func TestCheckForLeaks_ReportsBucketShortOfCapacity(t *testing.T) {
	pool := NewBufferPool()
	pool.Reserve(testFormat(), 128, 4)

	_, err := pool.Acquire(testFormat(), 128)
	require.NoError(t, err)

	report := CheckForLeaks(pool)
	require.False(t, report.Empty())
	require.Len(t, report.Buckets, 1)
	require.Equal(t, 4, report.Buckets[0].Capacity)
	require.Equal(t, 3, report.Buckets[0].Available)
}
