package audiocore

// BufferPolicy controls how a buffer crossing a connection is shared.
type BufferPolicy int

const (
	// BufferPolicyAuto lets the engine pick move for single-consumer pads
	// and shared_ref for fan-out pads.
	BufferPolicyAuto BufferPolicy = iota
	// BufferPolicyMove hands the buffer to exactly one sink; the engine
	// never clones it for this edge.
	BufferPolicyMove
	// BufferPolicySharedRef clone-refs the buffer once per fan-out edge
	// (spec.md §3 Connection invariant).
	BufferPolicySharedRef
)

// Connection is the immutable edge tuple from spec.md §3.
type Connection struct {
	SourceNode string
	SourcePad  int
	SinkNode   string
	SinkPad    int

	Policy                BufferPolicy
	AllowFormatConversion bool
}

func (c Connection) isSelfLoop() bool { return c.SourceNode == c.SinkNode }

// sinkKey and sourceKey identify one endpoint of a connection for the
// per-pad lookups Graph needs (duplicate-sink-connection detection, fan-out
// detection).
type sinkKey struct {
	node string
	pad  int
}

type sourceKey struct {
	node string
	pad  int
}
