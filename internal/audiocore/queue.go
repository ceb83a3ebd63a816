package audiocore

import "time"

// boundedQueue is the bounded SPSC hand-off between a file worker thread
// and the realtime thread (spec.md §4.4, §5). The realtime side only
// ever uses the non-blocking Try* methods; the worker side uses the
// Wait* methods, which re-check the stop channel every
// DefaultQueueWaitTimeout so stop() remains responsive without a
// dedicated condition variable.
type boundedQueue struct {
	ch chan AudioBuffer
}

func newBoundedQueue(depth int) *boundedQueue {
	return &boundedQueue{ch: make(chan AudioBuffer, depth)}
}

// TryPush is the realtime-safe, non-blocking enqueue used by FileSink's
// Accept. It reports false (never blocks) if the queue is full.
func (q *boundedQueue) TryPush(buf AudioBuffer) bool {
	select {
	case q.ch <- buf:
		return true
	default:
		return false
	}
}

// TryPop is the realtime-safe, non-blocking dequeue used by FileSource's
// Produce.
func (q *boundedQueue) TryPop() (AudioBuffer, bool) {
	select {
	case b := <-q.ch:
		return b, true
	default:
		return nil, false
	}
}

// WaitPush blocks until there is room, stop fires, or it retries after
// DefaultQueueWaitTimeout to keep stop responsive.
func (q *boundedQueue) WaitPush(buf AudioBuffer, stop <-chan struct{}) error {
	for {
		select {
		case q.ch <- buf:
			return nil
		case <-stop:
			return ErrQueueClosed
		case <-time.After(DefaultQueueWaitTimeout):
		}
	}
}

// WaitPop blocks until a buffer is available, stop fires, or it retries
// after DefaultQueueWaitTimeout.
func (q *boundedQueue) WaitPop(stop <-chan struct{}) (AudioBuffer, error) {
	for {
		select {
		case b := <-q.ch:
			return b, nil
		case <-stop:
			return nil, ErrQueueClosed
		case <-time.After(DefaultQueueWaitTimeout):
		}
	}
}

// Drain releases every buffer still queued (used on Stop, so pooled
// buffers are not leaked).
func (q *boundedQueue) Drain() {
	for {
		select {
		case b := <-q.ch:
			b.Release()
		default:
			return
		}
	}
}
