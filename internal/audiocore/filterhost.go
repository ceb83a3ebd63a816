package audiocore

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/brightloom/audiopath/internal/logging"
)

// liveUpdatableFilters distinguishes filters libavfilter can update live
// via avfilter_graph_send_command (ffmpegFilterProc.SendCommand) from ones
// that require a full graph restart to observe a new parameter
// (SPEC_FULL.md §4.3 Open Question resolution).
var liveUpdatableFilters = map[string]bool{
	"equalizer": true,
	"volume":    true,
	"bass":      true,
	"treble":    true,
}

// paramCell is the single-slot atomic cell backing one (filter,
// parameter) pair (spec.md §4.3, §9 Design Notes): the control thread
// stores; Push loads and applies at the start of the next block.
type paramCell struct {
	value atomic.Value // float64
	dirty atomic.Bool
}

// FilterHost wraps an ffmpeg libavfilter graph for one FilterProcessor
// node (spec.md §4.3). Grounded on jivetalking's internal/processor
// two-pass filter chain (processWithFilters pushes a decoded frame into
// the graph then drains filtered output frames), adapted from a
// whole-file two-pass conversion into a per-block push/pull filter with
// a restart-on-parameter-change fallback for filters libavfilter's own
// command channel cannot update live.
type FilterHost struct {
	mu sync.Mutex

	description  string
	inputFormat  AudioFormat
	outputFormat AudioFormat
	frames       int

	proc *ffmpegFilterProc
	cells map[string]*paramCell

	// stalled is set when a live push triggered a drain+reinit; the next
	// Pull reports FilterStall instead of a buffer for that one block.
	stalled bool

	logger *slog.Logger
}

// NewFilterHost constructs an unconfigured FilterHost.
func NewFilterHost() *FilterHost {
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	return &FilterHost{
		cells:  make(map[string]*paramCell),
		logger: logger.With("component", "filter_host"),
	}
}

// Configure parses graphDescription (e.g. "equalizer f=1000 Q=1 gain=-10")
// into a libavfilter graph, builds that graph in process, and
// registers a parameter cell for every "name=value" term so
// UpdateParameter has something to validate against (spec.md §4.3).
func (h *FilterHost) Configure(graphDescription string, inputFormat, outputFormat AudioFormat, frames int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.description = graphDescription
	h.inputFormat = inputFormat
	h.outputFormat = outputFormat
	h.frames = frames
	h.cells = make(map[string]*paramCell)

	for _, term := range strings.Fields(graphDescription)[1:] {
		kv := strings.SplitN(term, "=", 2)
		if len(kv) != 2 {
			continue
		}
		cell := &paramCell{}
		if f, err := strconv.ParseFloat(kv[1], 64); err == nil {
			cell.value.Store(f)
		}
		h.cells[kv[1]] = cell // placeholder key fixed below
		h.cells[paramKey(filterName(graphDescription), kv[0])] = cell
		delete(h.cells, kv[1])
	}

	proc, err := startFfmpegFilterProc(graphDescription, inputFormat, outputFormat, frames)
	if err != nil {
		return fmt.Errorf("filterhost: configure: %w", err)
	}
	h.proc = proc
	return nil
}

func filterName(graphDescription string) string {
	fields := strings.Fields(graphDescription)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func paramKey(filterInstance, name string) string { return filterInstance + "." + name }

// UpdateParameter validates and stores a new value in the (filter,
// parameter) cell; Push observes it on the next call (spec.md §4.3).
func (h *FilterHost) UpdateParameter(filterInstance, name string, value float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	cell, ok := h.cells[paramKey(filterInstance, name)]
	if !ok {
		return ErrUnknownParameter
	}
	cell.value.Store(value)
	cell.dirty.Store(true)
	return nil
}

// Push hands input to the filter, applying any pending parameter update
// first. Must not block longer than the libavfilter graph push takes.
func (h *FilterHost) Push(input AudioBuffer) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.applyPendingLocked() {
		h.stalled = true
		return nil
	}
	if h.proc == nil {
		return ErrFilterStall
	}
	if err := h.proc.Write(input.Plane(0)); err != nil {
		h.logger.Warn("filter host push failed", "error", err)
		return ErrFilterStall
	}
	return nil
}

// applyPendingLocked drains dirty parameter cells. If every dirty cell's
// filter supports a live avfilter_graph_send_command update, it sends the
// commands in place and returns false. Otherwise it rebuilds the graph with
// the new parameters baked into the graph description and returns true
// (the caller must report one FilterStall for this block).
func (h *FilterHost) applyPendingLocked() (needsRestart bool) {
	var dirty []string
	for key, cell := range h.cells {
		if cell.dirty.CompareAndSwap(true, false) {
			dirty = append(dirty, key)
		}
	}
	if len(dirty) == 0 {
		return false
	}

	liveOK := true
	for _, key := range dirty {
		name := strings.SplitN(key, ".", 2)[0]
		if !liveUpdatableFilters[name] {
			liveOK = false
			break
		}
	}

	if liveOK && h.proc != nil {
		for _, key := range dirty {
			parts := strings.SplitN(key, ".", 2)
			val, _ := h.cells[key].value.Load().(float64)
			if err := h.proc.SendCommand(parts[0], parts[1], val); err != nil {
				h.logger.Warn("filter host live update failed, falling back to restart", "error", err)
				liveOK = false
				break
			}
		}
		if liveOK {
			return false
		}
	}

	h.restartLocked()
	return true
}

func (h *FilterHost) restartLocked() {
	rebuilt := rebuildDescription(h.description, h.cells)
	if h.proc != nil {
		h.proc.Close()
	}
	proc, err := startFfmpegFilterProc(rebuilt, h.inputFormat, h.outputFormat, h.frames)
	if err != nil {
		h.logger.Error("filter host restart failed", "error", err)
		h.proc = nil
		return
	}
	h.description = rebuilt
	h.proc = proc
}

func rebuildDescription(description string, cells map[string]*paramCell) string {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return description
	}
	name := fields[0]
	out := make([]string, 1, len(fields))
	out[0] = name
	for _, term := range fields[1:] {
		kv := strings.SplitN(term, "=", 2)
		if len(kv) != 2 {
			out = append(out, term)
			continue
		}
		if cell, ok := cells[paramKey(name, kv[0])]; ok {
			if v, ok := cell.value.Load().(float64); ok {
				out = append(out, fmt.Sprintf("%s=%v", kv[0], v))
				continue
			}
		}
		out = append(out, term)
	}
	return strings.Join(out, " ")
}

// Pull returns the next output block, or false if the filter needs more
// input (internal delay) or just restarted for a parameter update
// (spec.md §4.3: "returns None if the filter chain needs more input").
func (h *FilterHost) Pull(pool *BufferPool) (AudioBuffer, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stalled {
		h.stalled = false
		return nil, false
	}
	if h.proc == nil {
		return nil, false
	}

	buf, err := pool.Acquire(h.outputFormat, h.frames)
	if err != nil {
		return nil, false
	}
	plane, _ := buf.MutablePlane(0)
	got, err := h.proc.Read(plane)
	if err != nil || got < h.frames {
		buf.Release()
		return nil, false
	}
	return buf, true
}

// Close tears down the libavfilter graph.
func (h *FilterHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.proc == nil {
		return nil
	}
	err := h.proc.Close()
	h.proc = nil
	return err
}
