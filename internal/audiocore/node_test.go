package audiocore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPadContract_MatchesExactFormatAndFrames(t *testing.T) {
	format := testFormat()
	contract := PadContract{Format: format, Frames: 64}

	pool := NewBufferPool()
	pool.Reserve(format, 64, 1)
	buf, err := pool.Acquire(format, 64)
	require.NoError(t, err)
	defer buf.Release()

	require.True(t, contract.Matches(buf))
	require.False(t, PadContract{Format: format, Frames: 128}.Matches(buf))
}

func TestNodeBase_DescribeReflectsConstructionArgs(t *testing.T) {
	b := newNodeBase("src", NodeKindFileSource, 0, 1)
	b.description = "primary capture feed"

	d := b.Describe()
	require.Equal(t, "src", d.Name)
	require.Equal(t, NodeKindFileSource, d.Kind)
	require.Equal(t, "primary capture feed", d.Description)
	require.Equal(t, 0, d.InputPads)
	require.Equal(t, 1, d.OutputPads)
}

func TestNodeBase_RequireStateRejectsDisallowedTransition(t *testing.T) {
	b := newNodeBase("n", NodeKindFilterProcessor, 1, 1)
	require.NoError(t, b.requireState(NodeUnconfigured, NodeConfigured))

	b.state.Store(int32(NodeRunning))
	require.ErrorIs(t, b.requireState(NodeUnconfigured, NodeConfigured), ErrNotRunning)
}

func TestNodeKindAndNodeState_String(t *testing.T) {
	require.Equal(t, "hardware_source", NodeKindHardwareSource.String())
	require.Equal(t, "filter_processor", NodeKindFilterProcessor.String())
	require.Equal(t, "unknown", NodeKind(99).String())

	require.Equal(t, "running", NodeRunning.String())
	require.Equal(t, "unknown", NodeState(99).String())
}
