package audiocore

import (
	"sync"
	"sync/atomic"
)

// NodeKind is the tagged variant discriminant for Node (spec.md §9 Design
// Notes: "tagged variant (sum type)... Dispatch via match" — Go's nearest
// idiom is an interface with a Kind() discriminant plus capability
// sub-interfaces checked by type assertion, rather than a class
// hierarchy).
type NodeKind int

const (
	NodeKindHardwareSource NodeKind = iota
	NodeKindHardwareSink
	NodeKindFileSource
	NodeKindFileSink
	NodeKindFilterProcessor
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	switch k {
	case NodeKindHardwareSource:
		return "hardware_source"
	case NodeKindHardwareSink:
		return "hardware_sink"
	case NodeKindFileSource:
		return "file_source"
	case NodeKindFileSink:
		return "file_sink"
	case NodeKindFilterProcessor:
		return "filter_processor"
	default:
		return "unknown"
	}
}

// NodeState is the lifecycle state machine from spec.md §3: transitions
// are driven only by the control thread.
type NodeState int32

const (
	NodeUnconfigured NodeState = iota
	NodeConfigured
	NodeRunning
	NodeStopped
)

func (s NodeState) String() string {
	switch s {
	case NodeUnconfigured:
		return "unconfigured"
	case NodeConfigured:
		return "configured"
	case NodeRunning:
		return "running"
	case NodeStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// NodeDescriptor summarizes a node for diagnostics. It is not forwarded
// to ControlClient: the startup commands are sent exactly as configured.
type NodeDescriptor struct {
	Name        string
	Kind        NodeKind
	Description string
	InputPads   int
	OutputPads  int
}

// Node is the capability set every node variant implements (spec.md §4.4).
// Realtime-path methods (Accept/Produce/Process) must not block, allocate,
// or perform I/O; Configure/Start/Stop run only on the control thread.
type Node interface {
	Name() string
	Kind() NodeKind
	State() NodeState
	Describe() NodeDescriptor

	Configure(params map[string]string, contract PadContract) error
	Start() error
	Stop() error

	InputPadCount() int
	OutputPadCount() int
}

// Acceptor is implemented by nodes with input pads (sinks, processors).
type Acceptor interface {
	Node
	Accept(pad int, buf AudioBuffer) error
}

// Producer is implemented by nodes with output pads (sources, processors).
type Producer interface {
	Node
	Produce(pad int) (AudioBuffer, bool)
}

// Processor is implemented by FilterProcessor: after every input pad has
// received Accept for this tick, Engine calls Process to run the filter
// and make Produce's result available.
type Processor interface {
	Node
	Acceptor
	Producer
	Process() error
}

// nodeBase centralizes the state machine and description bookkeeping
// shared by every node variant.
type nodeBase struct {
	name        string
	kind        NodeKind
	description string
	inputPads   int
	outputPads  int

	state atomic.Int32
	mu    sync.Mutex // guards Configure/Start/Stop transitions
}

func newNodeBase(name string, kind NodeKind, inputPads, outputPads int) nodeBase {
	b := nodeBase{name: name, kind: kind, inputPads: inputPads, outputPads: outputPads}
	b.state.Store(int32(NodeUnconfigured))
	return b
}

func (b *nodeBase) Name() string         { return b.name }
func (b *nodeBase) Kind() NodeKind       { return b.kind }
func (b *nodeBase) State() NodeState     { return NodeState(b.state.Load()) }
func (b *nodeBase) InputPadCount() int   { return b.inputPads }
func (b *nodeBase) OutputPadCount() int  { return b.outputPads }

func (b *nodeBase) Describe() NodeDescriptor {
	return NodeDescriptor{
		Name:        b.name,
		Kind:        b.kind,
		Description: b.description,
		InputPads:   b.inputPads,
		OutputPads:  b.outputPads,
	}
}

// requireState returns ErrNotRunning-shaped validation when the node is
// not in one of the allowed states for the attempted transition.
func (b *nodeBase) requireState(allowed ...NodeState) error {
	cur := b.State()
	for _, s := range allowed {
		if cur == s {
			return nil
		}
	}
	return ErrNotRunning
}
