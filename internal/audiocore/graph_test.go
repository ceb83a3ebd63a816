package audiocore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stubNode is a minimal Node used to exercise Graph's ordering and
// validation logic without pulling in a real source/sink/processor.
type stubNode struct {
	nodeBase
}

func newStubNode(name string, kind NodeKind, in, out int) *stubNode {
	return &stubNode{nodeBase: newNodeBase(name, kind, in, out)}
}

func (n *stubNode) Configure(map[string]string, PadContract) error { return nil }
func (n *stubNode) Start() error                                   { return nil }
func (n *stubNode) Stop() error                                    { return nil }

func TestBuildGraph_TopologicalOrderSourceBeforeSink(t *testing.T) {
	src := newStubNode("src", NodeKindHardwareSource, 0, 1)
	mid := newStubNode("mid", NodeKindFilterProcessor, 1, 1)
	snk := newStubNode("snk", NodeKindHardwareSink, 1, 0)

	g, err := BuildGraph([]Node{snk, mid, src}, []Connection{
		{SourceNode: "src", SourcePad: 0, SinkNode: "mid", SinkPad: 0, Policy: BufferPolicyMove},
		{SourceNode: "mid", SourcePad: 0, SinkNode: "snk", SinkPad: 0, Policy: BufferPolicyMove},
	})
	require.NoError(t, err)

	order := g.Order()
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	require.Less(t, pos["src"], pos["mid"])
	require.Less(t, pos["mid"], pos["snk"])
}

func TestBuildGraph_CycleRejected(t *testing.T) {
	a := newStubNode("a", NodeKindFilterProcessor, 1, 1)
	b := newStubNode("b", NodeKindFilterProcessor, 1, 1)

	_, err := BuildGraph([]Node{a, b}, []Connection{
		{SourceNode: "a", SourcePad: 0, SinkNode: "b", SinkPad: 0, Policy: BufferPolicyMove},
		{SourceNode: "b", SourcePad: 0, SinkNode: "a", SinkPad: 0, Policy: BufferPolicyMove},
	})
	require.ErrorIs(t, err, ErrGraphHasCycle)
}

func TestBuildGraph_SelfLoopRejected(t *testing.T) {
	a := newStubNode("a", NodeKindFilterProcessor, 1, 1)

	_, err := BuildGraph([]Node{a}, []Connection{
		{SourceNode: "a", SourcePad: 0, SinkNode: "a", SinkPad: 0, Policy: BufferPolicyMove},
	})
	require.ErrorIs(t, err, ErrSelfLoop)
}

func TestBuildGraph_DuplicateSinkConnectionRejected(t *testing.T) {
	src := newStubNode("src", NodeKindHardwareSource, 0, 2)
	snk := newStubNode("snk", NodeKindHardwareSink, 1, 0)

	_, err := BuildGraph([]Node{src, snk}, []Connection{
		{SourceNode: "src", SourcePad: 0, SinkNode: "snk", SinkPad: 0, Policy: BufferPolicyMove},
		{SourceNode: "src", SourcePad: 1, SinkNode: "snk", SinkPad: 0, Policy: BufferPolicyMove},
	})
	require.ErrorIs(t, err, ErrDuplicateSink)
}

func TestBuildGraph_FanOutRequiresSharedRef(t *testing.T) {
	src := newStubNode("src", NodeKindHardwareSource, 0, 1)
	snk1 := newStubNode("snk1", NodeKindHardwareSink, 1, 0)
	snk2 := newStubNode("snk2", NodeKindHardwareSink, 1, 0)

	_, err := BuildGraph([]Node{src, snk1, snk2}, []Connection{
		{SourceNode: "src", SourcePad: 0, SinkNode: "snk1", SinkPad: 0, Policy: BufferPolicyMove},
		{SourceNode: "src", SourcePad: 0, SinkNode: "snk2", SinkPad: 0, Policy: BufferPolicyMove},
	})
	require.ErrorIs(t, err, ErrDuplicateSink)

	_, err = BuildGraph([]Node{src, snk1, snk2}, []Connection{
		{SourceNode: "src", SourcePad: 0, SinkNode: "snk1", SinkPad: 0, Policy: BufferPolicySharedRef},
		{SourceNode: "src", SourcePad: 0, SinkNode: "snk2", SinkPad: 0, Policy: BufferPolicySharedRef},
	})
	require.NoError(t, err)
}

func TestBuildGraph_UnknownNodeReferenceRejected(t *testing.T) {
	src := newStubNode("src", NodeKindHardwareSource, 0, 1)

	_, err := BuildGraph([]Node{src}, []Connection{
		{SourceNode: "src", SourcePad: 0, SinkNode: "ghost", SinkPad: 0, Policy: BufferPolicyMove},
	})
	require.ErrorIs(t, err, ErrUnknownNode)
}
