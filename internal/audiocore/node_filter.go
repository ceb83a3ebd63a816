package audiocore

import (
	"sync"
)

// FilterProcessor runs a FilterHost between one input pad and one output
// pad (spec.md §4.4): Accept stashes the tick's input, Process pushes it
// through the filter graph and pulls the result, Produce hands the result
// to downstream nodes.
type FilterProcessor struct {
	nodeBase

	mu       sync.Mutex
	graph    string
	contract PadContract
	pool     *BufferPool
	bus      *EventBus
	metrics  *Metrics
	host     *FilterHost

	pending AudioBuffer
	ready   AudioBuffer
}

// NewFilterProcessor constructs an unconfigured FilterProcessor.
func NewFilterProcessor(name, description string) *FilterProcessor {
	n := &FilterProcessor{nodeBase: newNodeBase(name, NodeKindFilterProcessor, 1, 1)}
	n.description = description
	return n
}

func (n *FilterProcessor) SetPool(pool *BufferPool) { n.pool = pool }
func (n *FilterProcessor) SetEventBus(bus *EventBus) { n.bus = bus }
func (n *FilterProcessor) SetMetrics(m *Metrics)     { n.metrics = m }

// Configure records params["graph"] (a filter description, e.g.
// "equalizer f=1000 Q=1 gain=-10") and the pad contract; the FilterHost
// itself is allocated by Start (spec.md §4.3 configure).
func (n *FilterProcessor) Configure(params map[string]string, contract PadContract) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeUnconfigured, NodeConfigured); err != nil {
		return err
	}
	graph := params["graph"]
	if graph == "" {
		return ErrUnknownNode
	}
	n.graph = graph
	n.contract = contract
	n.state.Store(int32(NodeConfigured))
	return nil
}

func (n *FilterProcessor) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeConfigured, NodeStopped); err != nil {
		return err
	}
	n.host = NewFilterHost()
	if err := n.host.Configure(n.graph, n.contract.Format, n.contract.Format, n.contract.Frames); err != nil {
		return err
	}
	n.state.Store(int32(NodeRunning))
	return nil
}

func (n *FilterProcessor) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.host != nil {
		n.host.Close()
		n.host = nil
	}
	if n.pending != nil {
		n.pending.Release()
		n.pending = nil
	}
	if n.ready != nil {
		n.ready.Release()
		n.ready = nil
	}
	n.state.Store(int32(NodeStopped))
	return nil
}

// Accept stashes this tick's input block (spec.md §4.6 tick step 3).
func (n *FilterProcessor) Accept(pad int, buf AudioBuffer) error {
	if pad != 0 {
		return ErrUnknownNode
	}
	if n.pending != nil {
		n.pending.Release()
	}
	n.pending = buf.Clone()
	return nil
}

// Process pushes the stashed input through the filter graph and pulls
// whatever output is ready, reporting a FilterStall event for any block
// in which the graph needed a parameter-driven restart instead of
// producing output (spec.md §4.3, §4.6 tick step 4).
func (n *FilterProcessor) Process() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pending == nil || n.host == nil {
		return nil
	}

	if err := n.host.Push(n.pending); err != nil {
		n.reportStall()
	}
	n.pending.Release()
	n.pending = nil

	if n.ready != nil {
		n.ready.Release()
		n.ready = nil
	}
	out, ok := n.host.Pull(n.pool)
	if !ok {
		n.reportStall()
		return nil
	}
	n.ready = out
	return nil
}

func (n *FilterProcessor) reportStall() {
	if n.bus != nil {
		n.bus.Publish(Event{Kind: EventFilterStall, Node: n.name})
	}
	if n.metrics != nil {
		n.metrics.FilterStalls.WithLabelValues(n.name).Inc()
	}
}

// UpdateParameter forwards a live parameter change to the FilterHost
// (spec.md §4.3 update_parameter). Safe to call from the control thread
// concurrently with Process running on the realtime thread.
func (n *FilterProcessor) UpdateParameter(filterInstance, name string, value float64) error {
	n.mu.Lock()
	host := n.host
	n.mu.Unlock()
	if host == nil {
		return ErrNotRunning
	}
	return host.UpdateParameter(filterInstance, name, value)
}

// Produce returns a cloned reference to the most recently produced
// block, or false if the filter stalled this tick (spec.md §4.6 tick
// step 6).
func (n *FilterProcessor) Produce(pad int) (AudioBuffer, bool) {
	if pad != 0 {
		return nil, false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ready == nil {
		return nil, false
	}
	return n.ready.Clone(), true
}
