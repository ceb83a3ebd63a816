package audiocore

import (
	"github.com/brightloom/audiopath/internal/errors"
)

// ComponentAudioCore identifies this package in error context.
const ComponentAudioCore = "audiocore"

// Sentinel errors for conditions callers commonly branch on. These are
// built eagerly (no component auto-detection) so errors.Is comparisons
// against them are cheap and stable.
var (
	// ErrPoolExhausted is returned by BufferPool.Acquire when a bucket's
	// free list is empty. Realtime callers must treat this as an
	// underrun/overrun, never retry-with-allocation.
	ErrPoolExhausted = errors.New(errors.NewStd("buffer pool exhausted")).
				Component(ComponentAudioCore).
				Category(errors.CategoryPoolExhaustion).
				Build()

	// ErrIncompatibleLayout is returned when two channel layouts do not
	// share the same semantic channel set (spec.md §4.2).
	ErrIncompatibleLayout = errors.New(errors.NewStd("incompatible channel layout")).
				Component(ComponentAudioCore).
				Category(errors.CategoryValidation).
				Build()

	// ErrBufferNotOwned is returned by MutablePlane when called on a buffer with
	// more than one reference (spec.md §4.1: mutable access requires
	// ref count == 1).
	ErrBufferNotOwned = errors.New(errors.NewStd("mutable buffer access requires sole reference")).
				Component(ComponentAudioCore).
				Category(errors.CategoryState).
				Build()

	// ErrGraphHasCycle is returned by BuildGraph when processors form a
	// cycle (spec.md §3, §8 scenario 6).
	ErrGraphHasCycle = errors.New(errors.NewStd("cycle in processor graph")).
				Component(ComponentAudioCore).
				Category(errors.CategoryConfiguration).
				Build()

	// ErrUnknownNode is returned when a connection references a node name
	// that was not declared.
	ErrUnknownNode = errors.New(errors.NewStd("unknown node")).
			Component(ComponentAudioCore).
			Category(errors.CategoryConfiguration).
			Build()

	// ErrDuplicateSink is returned when a sink pad has more than one
	// incoming connection (spec.md §3 Connection invariant).
	ErrDuplicateSink = errors.New(errors.NewStd("sink pad has more than one incoming connection")).
				Component(ComponentAudioCore).
				Category(errors.CategoryConfiguration).
				Build()

	// ErrSelfLoop is returned when a connection's source and sink node
	// are the same.
	ErrSelfLoop = errors.New(errors.NewStd("connection is a self-loop")).
			Component(ComponentAudioCore).
			Category(errors.CategoryConfiguration).
			Build()

	// ErrNotRunning is returned when an operation requires the engine or
	// node to be in the Running state.
	ErrNotRunning = errors.New(errors.NewStd("not running")).
			Component(ComponentAudioCore).
			Category(errors.CategoryState).
			Build()

	// ErrQueueClosed is returned by a file worker's queue after stop()
	// closes it (spec.md §5).
	ErrQueueClosed = errors.New(errors.NewStd("queue closed")).
			Component(ComponentAudioCore).
			Category(errors.CategoryState).
			Build()

	// ErrFormatMismatch is returned at configure time when a connection's
	// source and sink pad contracts differ and the connection does not
	// permit format conversion (spec.md §3 Pad invariant).
	ErrFormatMismatch = errors.New(errors.NewStd("pad format mismatch without allow_format_conversion")).
				Component(ComponentAudioCore).
				Category(errors.CategoryConfiguration).
				Build()

	// ErrFilterStall is raised when a FilterProcessor produces no output
	// for the current block (spec.md §4.3, §7).
	ErrFilterStall = errors.New(errors.NewStd("filter produced no output this block")).
			Component(ComponentAudioCore).
			Category(errors.CategoryFilterStall).
			Build()

	// ErrUnknownParameter is returned by update_parameter for an
	// unrecognized (filter, parameter) pair.
	ErrUnknownParameter = errors.New(errors.NewStd("unknown filter parameter")).
				Component(ComponentAudioCore).
				Category(errors.CategoryParameter).
				Build()
)
