package audiocore

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brightloom/audiopath/internal/logging"
)

// AudioBuffer is a ref-counted, planar-or-interleaved carrier for exactly
// one block of audio (spec.md §3). Every AudioBuffer on the realtime path
// is acquired from a BufferPool; none is heap-allocated there.
type AudioBuffer interface {
	// Format reports the buffer's sample format, layout and rate.
	Format() AudioFormat
	// Frames reports the fixed frame count this buffer carries.
	Frames() int
	// Plane returns the i-th byte plane (1 for interleaved, one per
	// channel for planar). Callers that only read (format conversion,
	// encoding, writing to a device) may call this regardless of ref
	// count; callers that mutate in place must use MutablePlane.
	Plane(i int) []byte
	// MutablePlane returns the i-th plane for in-place mutation. It
	// fails with ErrBufferNotOwned unless the caller holds the only
	// reference (spec.md §4.1: "permitted only when ref count equals 1").
	MutablePlane(i int) ([]byte, error)
	// Clone increments the reference count and returns the same
	// underlying buffer (spec.md §4.1 clone_ref). Used when a source pad
	// fans out to several sinks under buffer_policy=shared_ref.
	Clone() AudioBuffer
	// Release decrements the reference count; at zero the buffer returns
	// to its bucket's free list.
	Release()
	// RefCount reports the current reference count (diagnostics/tests).
	RefCount() int32
}

// bufferKey identifies a BufferPool bucket: buffers are only fungible
// within a bucket of identical (format, layout, frames).
type bufferKey struct {
	format SampleFormat
	layout string
	frames int
}

func keyFor(f AudioFormat, frames int) bufferKey {
	return bufferKey{format: f.SampleFormat, layout: f.ChannelLayout.Name, frames: frames}
}

type buffer struct {
	format   AudioFormat
	frames   int
	planes   [][]byte
	refCount int32
	pool     *BufferPool
	key      bufferKey
}

func (b *buffer) Format() AudioFormat { return b.format }
func (b *buffer) Frames() int         { return b.frames }

func (b *buffer) Plane(i int) []byte { return b.planes[i] }

func (b *buffer) MutablePlane(i int) ([]byte, error) {
	if atomic.LoadInt32(&b.refCount) != 1 {
		return nil, ErrBufferNotOwned
	}
	return b.planes[i], nil
}

func (b *buffer) Clone() AudioBuffer {
	atomic.AddInt32(&b.refCount, 1)
	return b
}

func (b *buffer) Release() {
	if atomic.AddInt32(&b.refCount, -1) == 0 && b.pool != nil {
		b.pool.put(b)
	}
}

func (b *buffer) RefCount() int32 { return atomic.LoadInt32(&b.refCount) }

// BufferPool is the bucketed, bounded free-list pool described in
// spec.md §4.1. Each bucket is sized once at start-up (Reserve) to a
// fixed capacity; Acquire on an exhausted bucket returns ErrPoolExhausted
// rather than allocating, so the realtime path never touches the Go
// allocator. Grounded on the teacher's tiered sync.Pool design, adapted
// from an unbounded allocating fallback to a fixed free list, since the
// realtime-safety contract forbids an allocating tier on the hot path.
type BufferPool struct {
	mu      sync.Mutex
	buckets map[bufferKey][]*buffer
	cap     map[bufferKey]int
	logger  *slog.Logger
}

// NewBufferPool creates an empty pool. Call Reserve for each
// (format, frames) bucket the graph will need before starting the
// realtime thread.
func NewBufferPool() *BufferPool {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	return &BufferPool{
		buckets: make(map[bufferKey][]*buffer),
		cap:     make(map[bufferKey]int),
		logger:  logger.With("component", "buffer_pool"),
	}
}

// Reserve preallocates count buffers of the given format/frames into
// their bucket, growing the bucket's capacity if it already exists.
// Must be called before the realtime thread starts (Engine construction
// step 4); Reserve itself allocates, which is fine off the hot path.
func (p *BufferPool) Reserve(format AudioFormat, frames, count int) {
	k := keyFor(format, frames)
	p.mu.Lock()
	defer p.mu.Unlock()

	for range count {
		b := &buffer{
			format: format,
			frames: frames,
			planes: make([][]byte, format.PlaneCount()),
			pool:   p,
			key:    k,
		}
		planeLen := format.PlaneLenBytes(frames) / format.PlaneCount()
		for i := range b.planes {
			b.planes[i] = make([]byte, planeLen)
		}
		p.buckets[k] = append(p.buckets[k], b)
	}
	p.cap[k] += count

	p.logger.Info("buffer pool bucket reserved",
		"format", format.SampleFormat.String(),
		"layout", format.ChannelLayout.Name,
		"frames", frames,
		"capacity", p.cap[k])
}

// Acquire pulls a buffer from the (format, frames) bucket's free list.
// It never allocates; an empty bucket (or one never Reserved) returns
// ErrPoolExhausted.
func (p *BufferPool) Acquire(format AudioFormat, frames int) (AudioBuffer, error) {
	k := keyFor(format, frames)
	p.mu.Lock()
	free := p.buckets[k]
	if len(free) == 0 {
		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	b := free[len(free)-1]
	p.buckets[k] = free[:len(free)-1]
	p.mu.Unlock()

	b.refCount = 1
	return b, nil
}

func (p *BufferPool) put(b *buffer) {
	p.mu.Lock()
	p.buckets[b.key] = append(p.buckets[b.key], b)
	p.mu.Unlock()
}

// BufferPoolStats reports one bucket's occupancy, used by the pool-conservation
// testable property (spec.md §8) and by the control thread's
// diagnostics.
type BufferPoolStats struct {
	Format    string
	Layout    string
	Frames    int
	Capacity  int
	Available int
}

// Stats returns a snapshot of every bucket's occupancy.
func (p *BufferPool) Stats() []BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make([]BufferPoolStats, 0, len(p.cap))
	for k, cap := range p.cap {
		stats = append(stats, BufferPoolStats{
			Format:    k.format.String(),
			Layout:    k.layout,
			Frames:    k.frames,
			Capacity:  cap,
			Available: len(p.buckets[k]),
		})
	}
	return stats
}
