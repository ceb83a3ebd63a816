package control

import (
	"github.com/brightloom/audiopath/internal/errors"
)

// ComponentControl identifies this package in error context.
const ComponentControl = "control"

var (
	// ErrNotConnected is returned by Send/Query when no connection to the
	// mixer is currently established.
	ErrNotConnected = errors.New(errors.NewStd("not connected to mixer")).
			Component(ComponentControl).
			Category(errors.CategoryTransport).
			Build()

	// ErrSendRetriesExhausted is returned by Send after its bounded retry
	// budget is spent without a successful write (spec.md §4.7: "bounded
	// retry on transport error").
	ErrSendRetriesExhausted = errors.New(errors.NewStd("send retries exhausted")).
					Component(ComponentControl).
					Category(errors.CategoryTransport).
					Build()

	// ErrQueryTimeout is returned by Query when the mixer does not reply
	// within the call's deadline.
	ErrQueryTimeout = errors.New(errors.NewStd("query timed out")).
				Component(ComponentControl).
				Category(errors.CategoryTimeout).
				Build()

	// ErrMalformedReply is returned when the mixer's reply to a query does
	// not match the expected address/value record shape.
	ErrMalformedReply = errors.New(errors.NewStd("malformed mixer reply")).
				Component(ComponentControl).
				Category(errors.CategoryTransport).
				Build()
)
