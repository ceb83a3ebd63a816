// Package errors - event bus integration
package errors

import (
	"sync/atomic"
)

// EventPublisher is an interface for publishing error events. This
// interface lets the errors package post to audiocore's event bus
// without importing it, avoiding a circular dependency.
type EventPublisher interface {
	TryPublish(event any) bool
}

// globalEventPublisher and hasActiveReporting are set by
// SetEventPublisher; until it is called, Build() skips the
// detection/publish path entirely (the fast path in errors.go).
// audiocore's EventBus satisfies EventPublisher, but audiocore does not
// call SetEventPublisher itself.
var (
	globalEventPublisher atomic.Value // stores EventPublisher
	hasActiveReporting   atomic.Bool
)

// SetEventPublisher registers the event bus as the destination for
// realtime-path errors built with Build().
func SetEventPublisher(publisher EventPublisher) {
	if publisher == nil {
		return
	}
	globalEventPublisher.Store(publisher)
	hasActiveReporting.Store(true)
}

// publishToEventBus posts an error to the event bus if one is registered.
func publishToEventBus(ee *EnhancedError) {
	publisher, _ := globalEventPublisher.Load().(EventPublisher)
	if publisher == nil {
		return
	}
	if publisher.TryPublish(ee) {
		ee.MarkReported()
	}
}
