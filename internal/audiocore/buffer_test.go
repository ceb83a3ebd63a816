package audiocore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testFormat() AudioFormat {
	return AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}
}

func TestBufferPool_AcquireReleaseConservation(t *testing.T) {
	pool := NewBufferPool()
	f := testFormat()
	pool.Reserve(f, 256, 4)

	var bufs []AudioBuffer
	for range 4 {
		b, err := pool.Acquire(f, 256)
		require.NoError(t, err)
		bufs = append(bufs, b)
	}

	_, err := pool.Acquire(f, 256)
	require.ErrorIs(t, err, ErrPoolExhausted)

	for _, b := range bufs {
		b.Release()
	}

	stats := pool.Stats()
	require.Len(t, stats, 1)
	require.Equal(t, 4, stats[0].Capacity)
	require.Equal(t, 4, stats[0].Available)
}

func TestBuffer_CloneSharesRefCount(t *testing.T) {
	pool := NewBufferPool()
	f := testFormat()
	pool.Reserve(f, 128, 1)

	b, err := pool.Acquire(f, 128)
	require.NoError(t, err)
	require.Equal(t, int32(1), b.RefCount())

	clone := b.Clone()
	require.Equal(t, int32(2), b.RefCount())
	require.Equal(t, int32(2), clone.RefCount())

	_, err = b.MutablePlane(0)
	require.ErrorIs(t, err, ErrBufferNotOwned)

	clone.Release()
	require.Equal(t, int32(1), b.RefCount())

	_, err = b.MutablePlane(0)
	require.NoError(t, err)

	b.Release()
	stats := pool.Stats()
	require.Equal(t, 1, stats[0].Available)
}

func TestBufferPool_DistinctBucketsByFrameCount(t *testing.T) {
	pool := NewBufferPool()
	f := testFormat()
	pool.Reserve(f, 128, 1)
	pool.Reserve(f, 256, 1)

	_, err := pool.Acquire(f, 512)
	require.ErrorIs(t, err, ErrPoolExhausted)

	b, err := pool.Acquire(f, 128)
	require.NoError(t, err)
	require.Equal(t, 128, b.Frames())
}
