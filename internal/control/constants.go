package control

import "time"

const (
	// DefaultCallTimeout is the default per-call deadline for Send/Query
	// when the caller's context carries no earlier deadline (spec.md §4.7:
	// "default 500 ms").
	DefaultCallTimeout = 500 * time.Millisecond

	// DefaultDialTimeout bounds a single connection attempt.
	DefaultDialTimeout = 5 * time.Second

	// DefaultSendRetries is Send's bounded retry budget on transport error
	// (spec.md §4.7).
	DefaultSendRetries = 3

	// DefaultSendRetryDelay is the pause between Send retry attempts.
	DefaultSendRetryDelay = 50 * time.Millisecond

	// DefaultReconnectMinBackoff and DefaultReconnectMaxBackoff bound the
	// exponential backoff used by the reconnect goroutine, grounded on
	// samoyed's AGW TCP socket server reconnect handling.
	DefaultReconnectMinBackoff = time.Second
	DefaultReconnectMaxBackoff = 5 * time.Minute
)
