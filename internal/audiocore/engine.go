package audiocore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/brightloom/audiopath/internal/config"
	"github.com/brightloom/audiopath/internal/control"
	"github.com/brightloom/audiopath/internal/logging"
)

// EngineState is the lifecycle Engine.LoadConfig/Start/Stop/Shutdown
// drive (spec.md §4.6).
type EngineState int32

const (
	EngineUnloaded EngineState = iota
	EngineLoaded
	EngineRunning
	EngineStopped
	EngineShutdown
)

// Engine is the lifecycle owner: validates configuration, constructs
// components, drives the graph (spec.md §4.6). Grounded on the
// teacher's top-level realtime.go / analyzer wiring: one struct owning
// every subsystem, constructed in an explicit numbered sequence, torn
// down in reverse.
type Engine struct {
	mu    sync.Mutex
	state EngineState

	doc       *config.Document
	canonical AudioFormat
	frames    int

	pool    *BufferPool
	bus     *EventBus
	metrics *Metrics
	graph   *Graph
	bridge  *HardwareBridge
	control control.Client

	tick    map[sourceKey]AudioBuffer
	fileSrc []Node
	fileSnk []Node
	hwSrc   []*HardwareSource
	hwSnk   []*HardwareSink
	filters []*FilterProcessor

	logger *slog.Logger
}

// NewEngine constructs an unloaded Engine.
func NewEngine() *Engine {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With("component", "engine"),
		tick:   make(map[sourceKey]AudioBuffer),
	}
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SubscribeEvents registers callback on the engine's event bus
// (spec.md §6 engine.subscribe_events). Must be called after LoadConfig.
func (e *Engine) SubscribeEvents(callback func(Event)) {
	e.mu.Lock()
	bus := e.bus
	e.mu.Unlock()
	if bus != nil {
		bus.Subscribe(callback)
	}
}

// LoadConfig validates doc, constructs every component, and sends the
// initial control commands, but does not start the realtime tick
// (spec.md §4.6 construction steps 1-7).
func (e *Engine) LoadConfig(doc *config.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != EngineUnloaded && e.state != EngineStopped {
		return ErrNotRunning
	}
	if err := config.Validate(doc); err != nil {
		return fmt.Errorf("engine: load_config: %w", err)
	}

	e.doc = doc
	e.bus = NewEventBus(256)
	e.metrics = InitMetrics()

	hasHardware := false
	for _, n := range doc.Nodes {
		if n.Type == "hardware_source" || n.Type == "hardware_sink" {
			hasHardware = true
			break
		}
	}

	var negRate, negFrames, negIn, negOut int
	if hasHardware {
		e.bridge = NewHardwareBridge(e.bus)
		if err := e.bridge.Load(doc.DeviceName); err != nil {
			return fmt.Errorf("engine: load_config: %w", err)
		}
		if err := e.bridge.Init(doc.SampleRate, doc.BufferSize); err != nil {
			return fmt.Errorf("engine: load_config: %w", err)
		}
		negRate, negFrames, negIn, negOut = e.bridge.NegotiatedFormat()
	}

	rate := doc.SampleRate
	if rate == 0 && doc.AutoConfigure {
		rate = negRate
	}
	frames := doc.BufferSize
	if frames == 0 && doc.AutoConfigure {
		frames = negFrames
	}
	if rate == 0 || frames == 0 {
		return fmt.Errorf("engine: load_config: no sample_rate/buffer_size configured and none adopted from hardware")
	}

	layout := layoutFromName(doc.InternalLayout)
	canonical := AudioFormat{
		SampleFormat:  formatFromName(doc.InternalFormat),
		Interleaved:   doc.Interleaved,
		ChannelLayout: layout,
		SampleRate:    rate,
	}
	e.canonical = canonical
	e.frames = frames

	e.pool = NewBufferPool()
	capacity := (len(doc.Connections)+2)*2 + poolSlackBuffers
	e.pool.Reserve(canonical, frames, capacity)

	deviceFormat := AudioFormat{
		SampleFormat:  SampleFormatF32,
		Interleaved:   true,
		ChannelLayout: layoutForChannelCount(max(negIn, negOut)),
		SampleRate:    negRate,
	}

	nodes := make([]Node, 0, len(doc.Nodes))
	contract := PadContract{Format: canonical, Frames: frames}
	for _, nc := range doc.Nodes {
		node, err := e.buildNode(nc, contract, deviceFormat)
		if err != nil {
			return fmt.Errorf("engine: load_config: node %q: %w", nc.Name, err)
		}
		nodes = append(nodes, node)
	}

	connections := make([]Connection, 0, len(doc.Connections))
	for _, cc := range doc.Connections {
		connections = append(connections, Connection{
			SourceNode:            cc.SourceName,
			SourcePad:             cc.SourcePad,
			SinkNode:              cc.SinkName,
			SinkPad:               cc.SinkPad,
			Policy:                bufferPolicyFromName(cc.BufferPolicy),
			AllowFormatConversion: cc.AllowFormatConversion,
		})
	}

	graph, err := BuildGraph(nodes, connections)
	if err != nil {
		return fmt.Errorf("engine: load_config: %w", err)
	}
	e.graph = graph

	if hasHardware {
		var activeIn, activeOut []int
		for _, n := range e.hwSrc {
			activeIn = append(activeIn, n.Channels()...)
		}
		for _, n := range e.hwSnk {
			activeOut = append(activeOut, n.Channels()...)
		}
		if err := e.bridge.CreateBuffers(activeIn, activeOut); err != nil {
			return fmt.Errorf("engine: load_config: %w", err)
		}
	}

	if doc.Control.Addr != "" {
		client := control.NewClient(control.Config{Addr: doc.Control.Addr})
		ctx, cancel := context.WithTimeout(context.Background(), control.DefaultDialTimeout)
		err := client.Connect(ctx)
		cancel()
		if err != nil {
			e.logger.Warn("initial mixer connect failed, continuing without control plane", "error", err)
		}
		e.control = client

		for _, cmd := range doc.InitialControlCommands {
			ctx, cancel := context.WithTimeout(context.Background(), control.DefaultCallTimeout)
			if err := client.Send(ctx, cmd.Address, cmd.Args); err != nil {
				e.logger.Warn("initial control command failed", "address", cmd.Address, "error", err)
			}
			cancel()
		}
	}

	e.state = EngineLoaded
	return nil
}

// buildNode constructs and configures one node, recording it in the
// per-kind slices the realtime tick and bridge wiring need.
func (e *Engine) buildNode(nc config.NodeConfig, contract PadContract, deviceFormat AudioFormat) (Node, error) {
	var node Node
	switch nc.Type {
	case "hardware_source":
		n := NewHardwareSource(nc.Name, nc.Description)
		n.SetPool(e.pool)
		n.SetDeviceFormat(deviceFormat)
		e.hwSrc = append(e.hwSrc, n)
		node = n
	case "hardware_sink":
		n := NewHardwareSink(nc.Name, nc.Description)
		n.SetDeviceFormat(deviceFormat)
		e.hwSnk = append(e.hwSnk, n)
		node = n
	case "file_source":
		n := NewFileSource(nc.Name, nc.Description)
		n.SetPool(e.pool)
		n.SetEventBus(e.bus)
		n.SetMetrics(e.metrics)
		e.fileSrc = append(e.fileSrc, n)
		node = n
	case "file_sink":
		n := NewFileSink(nc.Name, nc.Description)
		n.SetEventBus(e.bus)
		n.SetMetrics(e.metrics)
		e.fileSnk = append(e.fileSnk, n)
		node = n
	case "filter_processor":
		n := NewFilterProcessor(nc.Name, nc.Description)
		n.SetPool(e.pool)
		n.SetEventBus(e.bus)
		n.SetMetrics(e.metrics)
		e.filters = append(e.filters, n)
		node = n
	default:
		return nil, fmt.Errorf("unrecognized node type %q", nc.Type)
	}
	if err := node.Configure(nc.Params, contract); err != nil {
		return nil, err
	}
	return node, nil
}

// Start starts every node and the hardware bridge, beginning the
// realtime tick loop (spec.md §4.6 construction step 8).
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != EngineLoaded && e.state != EngineStopped {
		return ErrNotRunning
	}

	for _, n := range e.graph.Nodes() {
		if err := n.Start(); err != nil {
			return fmt.Errorf("engine: start: node %q: %w", n.Name(), err)
		}
	}

	if e.bridge != nil {
		e.bridge.SetTick(e.runTick)
		if err := e.bridge.Start(); err != nil {
			return fmt.Errorf("engine: start: %w", err)
		}
	}

	e.state = EngineRunning
	return nil
}

// runTick is the realtime tick entry point invoked by HardwareBridge on
// the driver's callback thread (spec.md §4.6 realtime tick, steps 1-6).
// It must not allocate, block, or perform I/O.
func (e *Engine) runTick(input, output []byte, frames uint32) {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.TickDuration.Observe(time.Since(start).Seconds())
		}
	}()

	for _, n := range e.hwSrc {
		if err := n.ReceiveHardware(input, int(frames)); err != nil {
			e.logger.Warn("hardware source receive failed, dropping block", "node", n.Name(), "error", err)
			continue
		}
		if buf, ok := n.Produce(0); ok {
			e.tick[sourceKey{node: n.Name(), pad: 0}] = buf
		}
	}

	for _, node := range e.fileSrc {
		src := node.(*FileSource)
		if buf, ok := src.Produce(0); ok {
			e.tick[sourceKey{node: src.Name(), pad: 0}] = buf
		} else {
			if e.metrics != nil {
				e.metrics.FileSourceStalls.WithLabelValues(src.Name()).Inc()
			}
			if silence, err := e.silenceBuffer(); err == nil {
				e.tick[sourceKey{node: src.Name(), pad: 0}] = silence
			}
		}
	}

	for _, name := range e.graph.Order() {
		n := e.graph.Node(name)
		proc, ok := n.(*FilterProcessor)
		if !ok {
			continue
		}
		for pad := 0; pad < proc.InputPadCount(); pad++ {
			conn, ok := e.graph.IncomingTo(name, pad)
			if !ok {
				continue
			}
			buf, ok := e.tick[sourceKey{node: conn.SourceNode, pad: conn.SourcePad}]
			if !ok {
				continue
			}
			if err := proc.Accept(pad, buf); err != nil {
				e.logger.Warn("filter processor accept failed", "node", name, "error", err)
			}
		}
		if err := proc.Process(); err != nil {
			e.logger.Warn("filter processor process failed", "node", name, "error", err)
		}
		if buf, ok := proc.Produce(0); ok {
			e.tick[sourceKey{node: name, pad: 0}] = buf
		}
	}

	for _, n := range e.hwSnk {
		conn, ok := e.graph.IncomingTo(n.Name(), 0)
		if ok {
			if buf, ok := e.tick[sourceKey{node: conn.SourceNode, pad: conn.SourcePad}]; ok {
				if err := n.Accept(0, buf); err != nil {
					e.logger.Warn("hardware sink accept failed", "node", n.Name(), "error", err)
				}
			}
		}
		if underrun := n.ProvideHardware(output, int(frames)); underrun {
			if e.bus != nil {
				e.bus.Publish(Event{Kind: EventHardwareSinkUnderrun, Node: n.Name(), Count: int(n.Underruns())})
			}
			if e.metrics != nil {
				e.metrics.HardwareUnderruns.Inc()
			}
		}
	}

	for _, node := range e.fileSnk {
		snk := node.(*FileSink)
		conn, ok := e.graph.IncomingTo(snk.Name(), 0)
		if ok {
			if buf, ok := e.tick[sourceKey{node: conn.SourceNode, pad: conn.SourcePad}]; ok {
				if err := snk.Accept(0, buf); err != nil {
					e.logger.Warn("file sink accept failed", "node", snk.Name(), "error", err)
				}
			}
		}
	}

	for k, buf := range e.tick {
		buf.Release()
		delete(e.tick, k)
	}
}

func (e *Engine) silenceBuffer() (AudioBuffer, error) {
	buf, err := e.pool.Acquire(e.canonical, e.frames)
	if err != nil {
		return nil, err
	}
	for i := 0; i < e.canonical.PlaneCount(); i++ {
		if plane, err := buf.MutablePlane(i); err == nil {
			clear(plane)
		}
	}
	return buf, nil
}

// UpdateParameter delivers a live parameter change to the named filter
// node's single-slot cell (spec.md §4.6 "Live parameter updates").
func (e *Engine) UpdateParameter(nodeName, filterInstance, paramName string, value float64) error {
	e.mu.Lock()
	graph := e.graph
	e.mu.Unlock()
	if graph == nil {
		return ErrNotRunning
	}
	n := graph.Node(nodeName)
	if n == nil {
		return ErrUnknownNode
	}
	proc, ok := n.(*FilterProcessor)
	if !ok {
		return ErrUnknownNode
	}
	return proc.UpdateParameter(filterInstance, paramName, value)
}

// Stop halts the bridge and every node, draining file workers, but
// keeps the graph and pool intact so Start can resume without a fresh
// LoadConfig (spec.md §4.6 Shutdown: "stop bridge -> stop nodes").
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopLocked()
}

func (e *Engine) stopLocked() error {
	if e.state != EngineRunning {
		return nil
	}

	if e.bridge != nil {
		if err := e.bridge.Stop(); err != nil {
			e.logger.Warn("hardware bridge stop failed", "error", err)
		}
	}
	for _, n := range e.graph.Nodes() {
		if err := n.Stop(); err != nil {
			e.logger.Warn("node stop failed", "node", n.Name(), "error", err)
		}
	}

	report := CheckForLeaks(e.pool)
	report.Log(e.logger)

	e.state = EngineStopped
	return nil
}

// Shutdown releases every buffer and the control connection after a
// prior Stop (spec.md §4.6 Shutdown: "release all buffers -> free
// pool"). The Engine is unusable after this; construct a new one to
// reload.
func (e *Engine) Shutdown() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == EngineRunning {
		_ = e.stopLocked()
	}

	if e.bridge != nil {
		_ = e.bridge.Unload()
	}
	if e.control != nil {
		_ = e.control.Close()
	}
	if e.bus != nil {
		e.bus.Close()
	}

	e.state = EngineShutdown
	return nil
}

func formatFromName(s string) SampleFormat {
	switch s {
	case "f64":
		return SampleFormatF64
	case "s16":
		return SampleFormatS16
	case "s24":
		return SampleFormatS24
	case "s32":
		return SampleFormatS32
	default:
		return SampleFormatF32
	}
}

func layoutFromName(s string) ChannelLayout {
	switch s {
	case "mono":
		return LayoutMono
	case "5.1":
		return Layout51
	default:
		return LayoutStereo
	}
}

func bufferPolicyFromName(s string) BufferPolicy {
	switch s {
	case "move":
		return BufferPolicyMove
	case "shared_ref":
		return BufferPolicySharedRef
	default:
		return BufferPolicyAuto
	}
}
