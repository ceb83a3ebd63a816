package audiocore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoundedQueue_TryPushTryPopRoundTrip(t *testing.T) {
	pool := NewBufferPool()
	pool.Reserve(testFormat(), 64, 2)
	q := newBoundedQueue(1)

	buf, err := pool.Acquire(testFormat(), 64)
	require.NoError(t, err)

	require.True(t, q.TryPush(buf))
	require.False(t, q.TryPush(buf)) // full

	got, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, buf, got)
	got.Release()

	_, ok = q.TryPop()
	require.False(t, ok)
}

func TestBoundedQueue_WaitPopReturnsErrQueueClosedOnStop(t *testing.T) {
	q := newBoundedQueue(1)
	stop := make(chan struct{})
	close(stop)

	_, err := q.WaitPop(stop)
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestBoundedQueue_WaitPushReturnsErrQueueClosedOnStop(t *testing.T) {
	pool := NewBufferPool()
	pool.Reserve(testFormat(), 64, 1)
	buf, err := pool.Acquire(testFormat(), 64)
	require.NoError(t, err)
	defer buf.Release()

	q := newBoundedQueue(0) // unbuffered, so WaitPush blocks until stop fires
	stop := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(stop)
	}()

	err = q.WaitPush(buf, stop)
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestBoundedQueue_DrainReleasesQueuedBuffers(t *testing.T) {
	pool := NewBufferPool()
	pool.Reserve(testFormat(), 64, 2)
	q := newBoundedQueue(2)

	b1, err := pool.Acquire(testFormat(), 64)
	require.NoError(t, err)
	b2, err := pool.Acquire(testFormat(), 64)
	require.NoError(t, err)
	require.True(t, q.TryPush(b1))
	require.True(t, q.TryPush(b2))

	q.Drain()

	stats := pool.Stats()
	require.Len(t, stats, 1)
	require.Equal(t, 2, stats[0].Available)
}
