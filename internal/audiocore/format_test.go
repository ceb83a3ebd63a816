package audiocore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func acquireFormat(t *testing.T, pool *BufferPool, f AudioFormat, frames int) AudioBuffer {
	t.Helper()
	pool.Reserve(f, frames, 1)
	b, err := pool.Acquire(f, frames)
	require.NoError(t, err)
	return b
}

func TestConvert_RoundTripPreservesAmplitude(t *testing.T) {
	pool := NewBufferPool()
	src := acquireFormat(t, pool, AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}, 4)
	dst := acquireFormat(t, pool, AudioFormat{SampleFormat: SampleFormatS16, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}, 4)

	writeSample(src, src.Format(), 0, 0, 0.5)
	writeSample(src, src.Format(), 1, 0, -0.5)

	require.NoError(t, Convert(src, dst))

	got := readSample(dst, dst.Format(), 0, 0)
	require.InDelta(t, 0.5, got, 0.001)
	got = readSample(dst, dst.Format(), 1, 0)
	require.InDelta(t, -0.5, got, 0.001)
}

func TestConvert_SampleRateMismatchRejected(t *testing.T) {
	pool := NewBufferPool()
	src := acquireFormat(t, pool, AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}, 4)
	dst := acquireFormat(t, pool, AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 44100}, 4)

	err := Convert(src, dst)
	require.Error(t, err)
}

func TestConvert_IncompatibleLayoutRejected(t *testing.T) {
	pool := NewBufferPool()
	src := acquireFormat(t, pool, AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutMono, SampleRate: 48000}, 4)
	dst := acquireFormat(t, pool, AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: Layout51, SampleRate: 48000}, 4)

	err := Convert(src, dst)
	require.Error(t, err)
}

func TestClampScale_ClipsOutOfRangeSamples(t *testing.T) {
	require.Equal(t, 32767.0, clampScale(2.0, 32767))
	require.Equal(t, -32767.0, clampScale(-2.0, 32767))
	require.Equal(t, 0.0, clampScale(0.0, 32767))
}

func TestAudioFormat_PlaneLenBytes(t *testing.T) {
	f := AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}
	require.Equal(t, 256*4*2, f.PlaneLenBytes(256))
	require.Equal(t, 1, f.PlaneCount())

	planar := f
	planar.Interleaved = false
	require.Equal(t, 256*4, planar.PlaneLenBytes(256))
	require.Equal(t, 2, planar.PlaneCount())
}
