package audiocore

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brightloom/audiopath/internal/errors"
	"github.com/brightloom/audiopath/internal/logging"
)

// EventKind enumerates the six events engine.subscribe_events delivers
// (spec.md §6).
type EventKind int

const (
	EventHardwareFault EventKind = iota
	EventSampleRateChanged
	EventFileSourceEndOfFile
	EventFileSinkOverrun
	EventHardwareSinkUnderrun
	EventFilterStall
)

func (k EventKind) String() string {
	switch k {
	case EventHardwareFault:
		return "hardware_fault"
	case EventSampleRateChanged:
		return "sample_rate_changed"
	case EventFileSourceEndOfFile:
		return "file_source_end_of_file"
	case EventFileSinkOverrun:
		return "file_sink_overrun"
	case EventHardwareSinkUnderrun:
		return "hardware_sink_underrun"
	case EventFilterStall:
		return "filter_stall"
	default:
		return "unknown"
	}
}

// Event is the payload delivered to subscribe_events callbacks.
type Event struct {
	Kind  EventKind
	Node  string
	Count int
	Rate  int
	Err   error
}

// EventBus is the lock-free (bounded, non-blocking-publish) event ring
// consumed by the control thread (spec.md §7: "counted and emitted as
// events to a lock-free event ring consumed by the control thread").
// Grounded on the teacher's internal/events eventbus.go: a buffered
// channel plus a worker goroutine fanning out to subscribers, with
// TryPublish never blocking the realtime thread.
type EventBus struct {
	ch      chan Event
	dropped atomic.Uint64

	mu          sync.RWMutex
	subscribers []func(Event)

	stop   chan struct{}
	done   chan struct{}
	logger *slog.Logger
}

// NewEventBus creates a bus with the given buffered capacity and starts
// its draining goroutine.
func NewEventBus(capacity int) *EventBus {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	b := &EventBus{
		ch:     make(chan Event, capacity),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger.With("component", "event_bus"),
	}
	go b.drain()
	return b
}

// Subscribe registers callback to receive every event published from now
// on. Intended for the control thread's engine.subscribe_events.
func (b *EventBus) Subscribe(callback func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, callback)
}

// Publish enqueues a domain event. Never blocks: a full ring drops the
// event and increments the dropped counter.
func (b *EventBus) Publish(e Event) bool {
	select {
	case b.ch <- e:
		return true
	default:
		b.dropped.Add(1)
		return false
	}
}

// TryPublish implements errors.EventPublisher, letting internal/errors
// post realtime-path errors here without audiocore-internal code needing
// to import the errors package at every call site. An EnhancedError is
// mapped onto the Event kind implied by its category.
func (b *EventBus) TryPublish(event any) bool {
	switch v := event.(type) {
	case Event:
		return b.Publish(v)
	case *errors.EnhancedError:
		return b.Publish(eventFromError(v))
	default:
		return false
	}
}

func eventFromError(ee *errors.EnhancedError) Event {
	kind := EventHardwareFault
	switch ee.Category {
	case errors.CategoryPoolExhaustion:
		kind = EventHardwareSinkUnderrun
	case errors.CategoryFilterStall:
		kind = EventFilterStall
	case errors.CategoryFileStall:
		kind = EventFileSinkOverrun
	case errors.CategoryDevice:
		kind = EventHardwareFault
	}
	node, _ := ee.GetContext()["node"].(string)
	return Event{Kind: kind, Node: node, Err: ee}
}

// Dropped reports how many events have been discarded for a full ring.
func (b *EventBus) Dropped() uint64 { return b.dropped.Load() }

func (b *EventBus) drain() {
	defer close(b.done)
	for {
		select {
		case e := <-b.ch:
			b.dispatch(e)
		case <-b.stop:
			// Drain whatever remains before exiting.
			for {
				select {
				case e := <-b.ch:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *EventBus) dispatch(e Event) {
	b.mu.RLock()
	subs := b.subscribers
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("event dropped, no subscribers", "kind", e.Kind.String(), "node", e.Node)
		return
	}
	for _, cb := range subs {
		cb(e)
	}
}

// Close stops the draining goroutine after flushing the buffered events.
func (b *EventBus) Close() {
	close(b.stop)
	<-b.done
}
