package audiocore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBridgeState_String(t *testing.T) {
	require.Equal(t, "unloaded", BridgeUnloaded.String())
	require.Equal(t, "driver_loaded", BridgeDriverLoaded.String())
	require.Equal(t, "initialized", BridgeInitialized.String())
	require.Equal(t, "buffers_ready", BridgeBuffersReady.String())
	require.Equal(t, "running", BridgeRunning.String())
	require.Equal(t, "unknown", BridgeState(99).String())
}

// The remaining HardwareBridge methods dial into portaudio, which needs
// a real audio backend; only the state-machine guards and the
// hardware-fault reporting path are exercisable without one.

func TestHardwareBridge_InitBeforeLoadRejected(t *testing.T) {
	b := NewHardwareBridge(nil)
	require.Equal(t, BridgeUnloaded, b.State())
	require.ErrorIs(t, b.Init(48000, 256), ErrNotRunning)
}

func TestHardwareBridge_CreateBuffersBeforeInitRejected(t *testing.T) {
	b := NewHardwareBridge(nil)
	require.ErrorIs(t, b.CreateBuffers(nil, nil), ErrNotRunning)
}

func TestHardwareBridge_ListDevicesBeforeLoadRejected(t *testing.T) {
	b := NewHardwareBridge(nil)
	_, err := b.ListDevices()
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestHardwareBridge_StopWhenNotRunningIsNoop(t *testing.T) {
	b := NewHardwareBridge(nil)
	require.NoError(t, b.Stop())
	require.Equal(t, BridgeUnloaded, b.State())
}

func TestHardwareBridge_OnStopPublishesHardwareFault(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Close()

	var got Event
	bus.Subscribe(func(e Event) { got = e })

	b := NewHardwareBridge(bus)
	b.onStop()

	require.Eventually(t, func() bool { return got.Kind == EventHardwareFault }, time.Second, time.Millisecond)
	require.Equal(t, BridgeUnloaded, b.State())
}

func TestHardwareBridge_OnDataNoopWithoutTick(t *testing.T) {
	b := NewHardwareBridge(nil)
	require.NotPanics(t, func() { b.onData(nil, nil, 64) })
}

func TestHardwareBridge_OnDataInvokesInstalledTick(t *testing.T) {
	b := NewHardwareBridge(nil)
	var gotFrames uint32
	b.SetTick(func(input, output []byte, frames uint32) { gotFrames = frames })
	b.onData([]byte{1, 2}, []byte{3, 4}, 128)
	require.Equal(t, uint32(128), gotFrames)
}
