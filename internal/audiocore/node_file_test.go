package audiocore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeWavFixture(t *testing.T, format AudioFormat, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	w, err := createWavWriter(path, format)
	require.NoError(t, err)
	block := make([]byte, format.PlaneLenBytes(frames))
	require.NoError(t, w.Write(block))
	require.NoError(t, w.Close())
	return path
}

func TestFileSource_ProducesDecodedBlocksThenEndOfFile(t *testing.T) {
	format := AudioFormat{SampleFormat: SampleFormatS16, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 44100}
	contract := PadContract{Format: format, Frames: 64}
	path := writeWavFixture(t, format, 64)

	pool := NewBufferPool()
	pool.Reserve(format, 64, 4)
	bus := NewEventBus(4)
	defer bus.Close()

	var eof bool
	bus.Subscribe(func(e Event) {
		if e.Kind == EventFileSourceEndOfFile {
			eof = true
		}
	})

	src := NewFileSource("src", "")
	src.SetPool(pool)
	src.SetEventBus(bus)
	require.NoError(t, src.Configure(map[string]string{"path": path}, contract))
	require.NoError(t, src.Start())

	var buf AudioBuffer
	require.Eventually(t, func() bool {
		b, ok := src.Produce(0)
		if ok {
			buf = b
			return true
		}
		return false
	}, time.Second, time.Millisecond)
	require.Equal(t, 64, buf.Frames())
	buf.Release()

	require.Eventually(t, func() bool { return eof }, time.Second, time.Millisecond)
	require.NoError(t, src.Stop())
}

func TestFileSink_OverrunCountedWhenQueueFull(t *testing.T) {
	format := AudioFormat{SampleFormat: SampleFormatS16, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 44100}
	contract := PadContract{Format: format, Frames: 64}
	path := filepath.Join(t.TempDir(), "out.wav")

	pool := NewBufferPool()
	pool.Reserve(format, 64, DefaultQueueDepth+8)
	bus := NewEventBus(8)
	defer bus.Close()

	snk := NewFileSink("snk", "")
	snk.SetEventBus(bus)
	require.NoError(t, snk.Configure(map[string]string{"path": path, "codec": "wav"}, contract))

	// Install a depth-1 queue without calling Start so no worker drains
	// it, forcing Accept to observe a full queue.
	snk.queue = newBoundedQueue(1)
	snk.stop = make(chan struct{})

	b1, err := pool.Acquire(format, 64)
	require.NoError(t, err)
	require.NoError(t, snk.Accept(0, b1))

	b2, err := pool.Acquire(format, 64)
	require.NoError(t, err)
	require.NoError(t, snk.Accept(0, b2))

	require.Equal(t, uint64(1), snk.Overruns())
}
