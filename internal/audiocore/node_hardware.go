package audiocore

import (
	"strconv"
	"strings"
	"sync"
)

// parseChannelList parses a comma-separated list of device channel
// indices, e.g. "0,1" (spec.md §4.4 HardwareSource/HardwareSink
// parameter: "ordered list of device channel indices").
func parseChannelList(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, ErrUnknownNode
		}
		out = append(out, n)
	}
	return out, nil
}

// HardwareSource acquires a canonical-format buffer each tick from the
// device's raw interleaved input samples (spec.md §4.4).
type HardwareSource struct {
	nodeBase

	mu           sync.Mutex
	channels     []int
	contract     PadContract
	pool         *BufferPool
	deviceFormat AudioFormat
	current      AudioBuffer
	view         rawDeviceBuffer
}

// NewHardwareSource constructs an unconfigured HardwareSource.
func NewHardwareSource(name, description string) *HardwareSource {
	n := &HardwareSource{nodeBase: newNodeBase(name, NodeKindHardwareSource, 0, 1)}
	n.description = description
	return n
}

// SetPool and SetDeviceFormat are called by Engine during construction,
// after HardwareBridge negotiates the device's actual rate/format, before
// Start (spec.md §4.6 step 5).
func (n *HardwareSource) SetPool(pool *BufferPool)            { n.pool = pool }
func (n *HardwareSource) SetDeviceFormat(f AudioFormat)       { n.deviceFormat = f }

// Channels reports this node's configured device channel indices, used
// by Engine to compute the union passed to HardwareBridge.CreateBuffers
// (spec.md §4.6 construction step 5).
func (n *HardwareSource) Channels() []int { return n.channels }

func (n *HardwareSource) Configure(params map[string]string, contract PadContract) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeUnconfigured, NodeConfigured); err != nil {
		return err
	}
	channels, err := parseChannelList(params["channels"])
	if err != nil {
		return err
	}
	if len(channels) != contract.Format.Channels() {
		return ErrFormatMismatch
	}
	n.channels = channels
	n.contract = contract
	n.state.Store(int32(NodeConfigured))
	return nil
}

func (n *HardwareSource) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeConfigured, NodeStopped); err != nil {
		return err
	}
	n.state.Store(int32(NodeRunning))
	return nil
}

func (n *HardwareSource) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current != nil {
		n.current.Release()
		n.current = nil
	}
	n.state.Store(int32(NodeStopped))
	return nil
}

// ReceiveHardware converts the driver's raw interleaved block into a
// fresh canonical buffer selecting this node's configured device
// channels, and latches it as the current output (spec.md §4.6 tick
// step 1). Called only from the realtime thread.
func (n *HardwareSource) ReceiveHardware(deviceData []byte, deviceFrames int) error {
	buf, err := n.pool.Acquire(n.contract.Format, n.contract.Frames)
	if err != nil {
		return err
	}

	n.view.format = n.deviceFormat
	n.view.frames = deviceFrames
	n.view.data = deviceData

	frames := n.contract.Frames
	if deviceFrames < frames {
		frames = deviceFrames
	}
	for outCh, devCh := range n.channels {
		for f := range frames {
			v := readSample(&n.view, n.deviceFormat, devCh, f)
			writeSample(buf, n.contract.Format, outCh, f, v)
		}
	}

	if n.current != nil {
		n.current.Release()
	}
	n.current = buf
	return nil
}

// Produce returns a cloned reference to the current block; the caller
// owns the clone and must release it (spec.md §4.6 tick step 6).
func (n *HardwareSource) Produce(pad int) (AudioBuffer, bool) {
	if pad != 0 || n.current == nil {
		return nil, false
	}
	return n.current.Clone(), true
}

// HardwareSink consumes the buffer latched via Accept and writes it into
// the driver's raw interleaved output block, substituting silence and
// counting an underrun if nothing was latched this tick (spec.md §4.4).
type HardwareSink struct {
	nodeBase

	mu           sync.Mutex
	channels     []int
	contract     PadContract
	deviceFormat AudioFormat
	latched      AudioBuffer
	view         rawDeviceBuffer
	underruns    uint64
}

// NewHardwareSink constructs an unconfigured HardwareSink.
func NewHardwareSink(name, description string) *HardwareSink {
	n := &HardwareSink{nodeBase: newNodeBase(name, NodeKindHardwareSink, 1, 0)}
	n.description = description
	return n
}

func (n *HardwareSink) SetDeviceFormat(f AudioFormat) { n.deviceFormat = f }

// Channels reports this node's configured device channel indices (see
// HardwareSource.Channels).
func (n *HardwareSink) Channels() []int { return n.channels }

func (n *HardwareSink) Configure(params map[string]string, contract PadContract) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeUnconfigured, NodeConfigured); err != nil {
		return err
	}
	channels, err := parseChannelList(params["channels"])
	if err != nil {
		return err
	}
	if len(channels) != contract.Format.Channels() {
		return ErrFormatMismatch
	}
	n.channels = channels
	n.contract = contract
	n.state.Store(int32(NodeConfigured))
	return nil
}

func (n *HardwareSink) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeConfigured, NodeStopped); err != nil {
		return err
	}
	n.state.Store(int32(NodeRunning))
	return nil
}

func (n *HardwareSink) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.latched != nil {
		n.latched.Release()
		n.latched = nil
	}
	n.state.Store(int32(NodeStopped))
	return nil
}

// Accept latches buf as this tick's input (spec.md §4.6 tick step 3/4).
func (n *HardwareSink) Accept(pad int, buf AudioBuffer) error {
	if pad != 0 {
		return ErrUnknownNode
	}
	if n.latched != nil {
		n.latched.Release()
	}
	n.latched = buf.Clone()
	return nil
}

// ProvideHardware writes the latched buffer into the driver's raw
// interleaved output block. It reports underrun=true (and writes
// silence instead) if nothing was latched this tick, so the caller can
// raise HardwareSinkUnderrun and log a warning (spec.md §4.4, §7).
func (n *HardwareSink) ProvideHardware(deviceData []byte, deviceFrames int) (underrun bool) {
	n.view.format = n.deviceFormat
	n.view.frames = deviceFrames
	n.view.data = deviceData

	if n.latched == nil {
		n.underruns++
		silence(&n.view, n.deviceFormat, n.channels, deviceFrames)
		return true
	}

	frames := n.contract.Frames
	if deviceFrames < frames {
		frames = deviceFrames
	}
	for srcCh, devCh := range n.channels {
		for f := range frames {
			v := readSample(n.latched, n.contract.Format, srcCh, f)
			writeSample(&n.view, n.deviceFormat, devCh, f, v)
		}
	}

	n.latched.Release()
	n.latched = nil
	return false
}

// Underruns reports the running underrun count (diagnostics/metrics).
func (n *HardwareSink) Underruns() uint64 { return n.underruns }

// silence zeroes the given device channels for frames frames.
func silence(buf AudioBuffer, f AudioFormat, channels []int, frames int) {
	for _, ch := range channels {
		for fr := range frames {
			writeSample(buf, f, ch, fr, 0)
		}
	}
}
