package audiocore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventBus_PublishDispatchesToSubscribers(t *testing.T) {
	bus := NewEventBus(4)
	defer bus.Close()

	var mu sync.Mutex
	var got []Event
	bus.Subscribe(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	require.True(t, bus.Publish(Event{Kind: EventFilterStall, Node: "eq"}))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	require.Equal(t, EventFilterStall, got[0].Kind)
	require.Equal(t, "eq", got[0].Node)
	mu.Unlock()
}

func TestEventBus_PublishNeverBlocksOnFullRing(t *testing.T) {
	bus := NewEventBus(1)
	defer bus.Close()

	// Block the drain goroutine by holding the subscriber callback.
	release := make(chan struct{})
	bus.Subscribe(func(Event) { <-release })

	require.True(t, bus.Publish(Event{Kind: EventHardwareFault}))
	time.Sleep(10 * time.Millisecond) // let drain pick the first event up
	require.True(t, bus.Publish(Event{Kind: EventHardwareFault}))
	ok := bus.Publish(Event{Kind: EventHardwareFault})
	require.False(t, ok)
	require.Equal(t, uint64(1), bus.Dropped())

	close(release)
}
