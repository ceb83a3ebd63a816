package audiocore

import "time"

// Defaults drawn from spec.md §4, §5 and §6.
const (
	// DefaultQueueDepth is the bounded SPSC queue depth for file
	// source/sink workers (spec.md §4.4, §5).
	DefaultQueueDepth = 4

	// DefaultJoinDeadline bounds how long Engine.Stop waits for a worker
	// to exit before reporting it leaked (spec.md §5, §9).
	DefaultJoinDeadline = time.Second

	// DefaultQueueWaitTimeout is how long a file worker blocks on its
	// queue condition variable before re-checking its stop signal
	// (spec.md §5).
	DefaultQueueWaitTimeout = 100 * time.Millisecond

	// DefaultControlTimeout has the same value as ControlClient's default
	// per-call deadline for send/query (spec.md §5, §7); ControlClient
	// itself uses control.DefaultCallTimeout, not this constant.
	DefaultControlTimeout = 500 * time.Millisecond

	// DefaultReconnectMaxBackoff has the same value as ControlClient's
	// reconnect backoff cap, which ControlClient reads from
	// control.DefaultReconnectMaxBackoff.
	DefaultReconnectMaxBackoff = 5 * time.Minute

	// DefaultSampleRate and DefaultBlockFrames name a conventional rate and
	// block size. Engine.LoadConfig does not fall back to them: when
	// neither the configuration nor the hardware supplies a value, it fails.
	DefaultSampleRate  = 48000
	DefaultBlockFrames = 256

	// poolSlackBuffers is the small slack added on top of the computed
	// minimum pool capacity (spec.md §4.6 step 4: "rounded up").
	poolSlackBuffers = 2
)
