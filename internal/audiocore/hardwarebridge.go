package audiocore

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/brightloom/audiopath/internal/errors"
	"github.com/brightloom/audiopath/internal/logging"
	"github.com/gordonklaus/portaudio"
)

// BridgeState is the HardwareBridge lifecycle (spec.md §4.5).
type BridgeState int32

const (
	BridgeUnloaded BridgeState = iota
	BridgeDriverLoaded
	BridgeInitialized
	BridgeBuffersReady
	BridgeRunning
)

func (s BridgeState) String() string {
	switch s {
	case BridgeUnloaded:
		return "unloaded"
	case BridgeDriverLoaded:
		return "driver_loaded"
	case BridgeInitialized:
		return "initialized"
	case BridgeBuffersReady:
		return "buffers_ready"
	case BridgeRunning:
		return "running"
	default:
		return "unknown"
	}
}

// DeviceInfo summarizes one enumerated portaudio playback/capture device.
type DeviceInfo struct {
	Name      string
	IsDefault bool
	IsCapture bool
}

// TickFunc is the engine's realtime tick entry point, invoked once per
// driver buffer-switch callback with the active input/output byte
// buffers for this half (spec.md §4.6 step 1-6).
type TickFunc func(input, output []byte, frames uint32)

// HardwareBridge translates portaudio's duplex stream callback into
// graph ticks (spec.md §4.5). Grounded on portaudio's declared-but-
// unwired presence in the pack (it exists as a direct dependency of
// doismellburning-samoyed's go.mod even though that repo drives its
// sound card through cgo ALSA/OSS calls directly); the stream is opened
// once in Init and driven entirely from its own callback goroutine,
// mirroring the single-device/single-callback shape portaudio.OpenStream
// expects.
type HardwareBridge struct {
	mu    sync.Mutex
	state atomic.Int32

	stream *portaudio.Stream

	deviceName     string
	sampleRate     uint32
	periodFrames   uint32
	inputChannels  uint32
	outputChannels uint32

	tick   TickFunc
	bus    *EventBus
	logger *slog.Logger
}

// NewHardwareBridge constructs an unloaded bridge. bus receives
// HardwareFault events; the bridge publishes no sample-rate-changed,
// latency-changed or reset notifications, and it never reconfigures on
// its own (spec.md §4.5).
func NewHardwareBridge(bus *EventBus) *HardwareBridge {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	b := &HardwareBridge{bus: bus, logger: logger.With("component", "hardware_bridge")}
	b.state.Store(int32(BridgeUnloaded))
	return b
}

func (b *HardwareBridge) State() BridgeState { return BridgeState(b.state.Load()) }

// Load initializes the portaudio host API and records the requested
// device name (Unloaded -> DriverLoaded).
func (b *HardwareBridge) Load(deviceName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() != BridgeUnloaded {
		return ErrNotRunning
	}

	if err := portaudio.Initialize(); err != nil {
		b.fault("load", err)
		return errDeviceFault("load driver context", err)
	}

	b.deviceName = deviceName
	b.state.Store(int32(BridgeDriverLoaded))
	return nil
}

// ListDevices enumerates available playback and capture devices
// (diagnostics / `audiopathd devices`).
func (b *HardwareBridge) ListDevices() ([]DeviceInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() == BridgeUnloaded {
		return nil, ErrNotRunning
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, errDeviceFault("enumerate devices", err)
	}

	defaultIn, defaultOut := defaultDeviceNames()

	var out []DeviceInfo
	for _, d := range devices {
		if d.MaxOutputChannels > 0 {
			out = append(out, DeviceInfo{Name: d.Name, IsDefault: d.Name == defaultOut})
		}
		if d.MaxInputChannels > 0 {
			out = append(out, DeviceInfo{Name: d.Name, IsCapture: true, IsDefault: d.Name == defaultIn})
		}
	}
	return out, nil
}

func defaultDeviceNames() (in, out string) {
	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return "", ""
	}
	if host.DefaultInputDevice != nil {
		in = host.DefaultInputDevice.Name
	}
	if host.DefaultOutputDevice != nil {
		out = host.DefaultOutputDevice.Name
	}
	return in, out
}

// Init opens a 2-in/2-out duplex stream at the preferred rate and frame
// count (DriverLoaded -> Initialized) and records those requested values
// and the fixed channel counts; the driver's actual rate, frame count and
// channel counts are not read back from the opened stream. portaudio's duplex callback always hands float32 planes; the bridge
// reinterprets those as raw byte planes via unsafe.Slice so the rest of
// the engine keeps operating on flat interleaved byte buffers exactly
// as it does for the file-backed nodes.
func (b *HardwareBridge) Init(preferredRate, preferredFrames int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() != BridgeDriverLoaded {
		return ErrNotRunning
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		b.fault("init", err)
		return errDeviceFault("resolve host api", err)
	}
	inDevice, outDevice := host.DefaultInputDevice, host.DefaultOutputDevice
	if b.deviceName != "" {
		if d, ok := findDeviceByName(host, b.deviceName); ok {
			if d.MaxOutputChannels > 0 {
				outDevice = d
			}
			if d.MaxInputChannels > 0 {
				inDevice = d
			}
		}
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   inDevice,
			Channels: 2,
			Latency:  inDevice.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   outDevice,
			Channels: 2,
			Latency:  outDevice.DefaultLowOutputLatency,
		},
		SampleRate:      float64(preferredRate),
		FramesPerBuffer: preferredFrames,
	}

	stream, err := portaudio.OpenStream(params, b.streamCallback)
	if err != nil {
		b.fault("init", err)
		return errDeviceFault("init device", err)
	}

	b.stream = stream
	b.sampleRate = uint32(preferredRate)
	b.periodFrames = uint32(preferredFrames)
	b.inputChannels = uint32(params.Input.Channels)
	b.outputChannels = uint32(params.Output.Channels)
	b.state.Store(int32(BridgeInitialized))
	return nil
}

func findDeviceByName(host *portaudio.HostApiInfo, name string) (*portaudio.DeviceInfo, bool) {
	for _, d := range host.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// NegotiatedFormat returns the rate/frame-count/channel counts Init
// recorded (the requested values, see Init), used to resolve the
// engine's canonical format (spec.md §4.6 step 3).
func (b *HardwareBridge) NegotiatedFormat() (sampleRate, frames int, inputChannels, outputChannels int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int(b.sampleRate), int(b.periodFrames), int(b.inputChannels), int(b.outputChannels)
}

// CreateBuffers is a no-op past Init for portaudio (it allocates its
// stream buffers at OpenStream time); kept as an explicit state
// transition to mirror spec.md §4.5's state machine. The active channel
// lists are accepted but not recorded or used.
func (b *HardwareBridge) CreateBuffers(activeInputChannels, activeOutputChannels []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() != BridgeInitialized {
		return ErrNotRunning
	}
	b.state.Store(int32(BridgeBuffersReady))
	return nil
}

// SetTick installs the engine's realtime tick callback. Must be called
// before Start.
func (b *HardwareBridge) SetTick(tick TickFunc) { b.tick = tick }

// Start begins the driver's callback loop (BuffersReady -> Running).
func (b *HardwareBridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() != BridgeBuffersReady {
		return ErrNotRunning
	}
	if err := b.stream.Start(); err != nil {
		b.fault("start", err)
		return errDeviceFault("start device", err)
	}
	b.state.Store(int32(BridgeRunning))
	return nil
}

// Stop halts the driver's callback loop (Running -> BuffersReady).
func (b *HardwareBridge) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.State() != BridgeRunning {
		return nil
	}
	if err := b.stream.Stop(); err != nil {
		b.fault("stop", err)
		return errDeviceFault("stop device", err)
	}
	b.state.Store(int32(BridgeBuffersReady))
	return nil
}

// Unload tears the stream and host API down entirely, returning the
// bridge to Unloaded so it can be reloaded against a different device.
func (b *HardwareBridge) Unload() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stream != nil {
		b.stream.Close() //nolint:errcheck
		b.stream = nil
	}
	if b.State() != BridgeUnloaded {
		portaudio.Terminate() //nolint:errcheck
	}
	b.state.Store(int32(BridgeUnloaded))
	return nil
}

// streamCallback is portaudio's duplex buffer-switch trampoline
// (spec.md §4.5: "on each callback... the bridge looks up the pointer
// for each active channel and half, then invokes the engine's tick").
// portaudio hands one interleaved float32 plane per half; the bridge
// reinterprets each as a byte slice so onData's contract matches the
// raw-interleaved-buffer adapters the rest of the graph already uses.
func (b *HardwareBridge) streamCallback(in, out []float32) {
	input := float32PlaneAsBytes(in)
	output := float32PlaneAsBytes(out)
	b.onData(output, input, uint32(len(out))/uint32(b.outputChannels))
}

func float32PlaneAsBytes(plane []float32) []byte {
	if len(plane) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&plane[0])), len(plane)*4)
}

// onData is the engine-facing half of streamCallback, kept separate so
// tests can drive it directly without a real portaudio stream.
func (b *HardwareBridge) onData(output, input []byte, frameCount uint32) {
	if b.tick == nil {
		return
	}
	b.tick(input, output, frameCount)
}

// onStop reports an unsolicited stop (device lost, driver reset) as a
// fault. It is not registered with the portaudio stream, so it runs only
// when called directly. The bridge never reconfigures itself; it only
// reports the fault upstream (spec.md §4.5: "the realtime thread stops").
func (b *HardwareBridge) onStop() {
	b.fault("device stopped unexpectedly", nil)
}

func (b *HardwareBridge) fault(stage string, err error) {
	b.state.Store(int32(BridgeUnloaded))
	b.logger.Error("hardware fault", "stage", stage, "error", err)
	if b.bus != nil {
		b.bus.Publish(Event{Kind: EventHardwareFault, Node: b.deviceName, Err: err})
	}
}

func errDeviceFault(stage string, cause error) error {
	if cause == nil {
		cause = errors.NewStd(stage)
	}
	return errors.New(cause).
		Component(ComponentAudioCore).
		Category(errors.CategoryDevice).
		Context("stage", stage).
		Build()
}
