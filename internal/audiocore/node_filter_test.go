package audiocore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilterProcessor_ConfigureRequiresGraphParam(t *testing.T) {
	format := AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}
	contract := PadContract{Format: format, Frames: 64}

	n := NewFilterProcessor("filt", "")
	err := n.Configure(map[string]string{}, contract)
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestFilterProcessor_ProduceBeforeProcessReportsNoOutput(t *testing.T) {
	n := NewFilterProcessor("filt", "")
	_, ok := n.Produce(0)
	require.False(t, ok)
}

func TestFilterProcessor_UpdateParameterBeforeStartRejected(t *testing.T) {
	n := NewFilterProcessor("filt", "")
	err := n.UpdateParameter("volume", "volume", 0.5)
	require.ErrorIs(t, err, ErrNotRunning)
}

// TestFilterProcessor_ProcessRunsGraphAndProducesOutput is the one test in
// this file that needs ffmpeg, since Start allocates a real
// FilterHost (see filterhost_test.go's requireFfmpeg).
func TestFilterProcessor_ProcessRunsGraphAndProducesOutput(t *testing.T) {
	requireFfmpeg(t)

	format := AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}
	contract := PadContract{Format: format, Frames: 64}

	pool := NewBufferPool()
	pool.Reserve(format, 64, 8)
	bus := NewEventBus(8)
	defer bus.Close()

	n := NewFilterProcessor("filt", "")
	n.SetPool(pool)
	n.SetEventBus(bus)
	require.NoError(t, n.Configure(map[string]string{"graph": "volume volume=0.5"}, contract))
	require.NoError(t, n.Start())
	defer n.Stop()

	in, err := pool.Acquire(format, 64)
	require.NoError(t, err)
	require.NoError(t, n.Accept(0, in))
	in.Release()

	require.Eventually(t, func() bool {
		if err := n.Process(); err != nil {
			return false
		}
		if out, ok := n.Produce(0); ok {
			out.Release()
			return true
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}
