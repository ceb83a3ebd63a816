package audiocore

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/brightloom/audiopath/internal/logging"
)

// Counter is a monotonically increasing, concurrency-safe counter.
// Grounded on the absence of any metrics/observability library anywhere
// in the reference pack (see DESIGN.md "Standard-library-only parts"):
// the realtime and I/O worker paths only ever need Inc/Add, so a bare
// atomic.Int64 replaces what would otherwise be a prometheus.Counter.
type Counter struct {
	v atomic.Int64
}

func (c *Counter) Inc()          { c.v.Add(1) }
func (c *Counter) Add(n int64)   { c.v.Add(n) }
func (c *Counter) Load() int64   { return c.v.Load() }

// LabeledCounter is a set of Counters keyed by a label tuple, standing
// in for a prometheus.CounterVec. Labels are joined into a single map
// key; cardinality here is bounded by node/format names, never user
// input, so an unbounded map is acceptable.
type LabeledCounter struct {
	mu       sync.Mutex
	counters map[string]*Counter
}

func newLabeledCounter() *LabeledCounter {
	return &LabeledCounter{counters: make(map[string]*Counter)}
}

// WithLabelValues returns the Counter for this label tuple, creating it
// on first use.
func (l *LabeledCounter) WithLabelValues(labels ...string) *Counter {
	key := labelKey(labels)
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.counters[key]
	if !ok {
		c = &Counter{}
		l.counters[key] = c
	}
	return c
}

func labelKey(labels []string) string {
	key := ""
	for i, l := range labels {
		if i > 0 {
			key += "\x00"
		}
		key += l
	}
	return key
}

// Histogram tracks count and sum of observed values, enough to derive a
// mean; standing in for a prometheus.Histogram's buckets, which nothing
// downstream of GetMetrics ever reads a percentile from.
type Histogram struct {
	mu    sync.Mutex
	count int64
	sum   float64
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
}

// Snapshot returns the observation count and mean value.
func (h *Histogram) Snapshot() (count int64, mean float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return 0, 0
	}
	return h.count, h.sum / float64(h.count)
}

// Metrics collects the counters the realtime and I/O worker paths
// update. Grounded on jivetalking's processor.go progress-callback
// counters (pass/level/measurement tracking plumbed back to the CLI),
// generalized here into always-on process counters rather than a
// one-shot callback, since no metrics library exists anywhere in the
// reference pack to reach for instead.
type Metrics struct {
	PoolExhausted      *LabeledCounter
	HardwareUnderruns  *Counter
	FileSinkOverruns   *LabeledCounter
	FileSourceStalls   *LabeledCounter
	FilterStalls       *LabeledCounter
	TickDuration       *Histogram
	EventsDropped      *Counter
	ControlSendRetries *Counter

	logger *slog.Logger
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// InitMetrics builds (once) the package's Metrics. Subsequent calls
// return the already-built instance so tests and production wiring
// share one instance.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		logger := logging.ForService("audiocore")
		if logger == nil {
			logger = slog.Default()
		}
		metrics = &Metrics{
			PoolExhausted:      newLabeledCounter(),
			HardwareUnderruns:  &Counter{},
			FileSinkOverruns:   newLabeledCounter(),
			FileSourceStalls:   newLabeledCounter(),
			FilterStalls:       newLabeledCounter(),
			TickDuration:       &Histogram{},
			EventsDropped:      &Counter{},
			ControlSendRetries: &Counter{},
			logger:             logger.With("component", "metrics"),
		}
	})
	return metrics
}

// GetMetrics returns the process-wide Metrics instance, or nil if
// InitMetrics has not been called yet.
func GetMetrics() *Metrics { return metrics }
