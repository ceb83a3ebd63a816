package audiocore

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/brightloom/audiopath/internal/logging"
)

// fileDecoder is the common shape of wavReader and ffmpegDecoder.
type fileDecoder interface {
	Read(dst []byte, frames int) (int, error)
	AudioFormat() AudioFormat
	Close() error
}

// fileEncoder is the common shape of wavWriter and ffmpegEncoder.
type fileEncoder interface {
	Write(data []byte) error
	AudioFormat() AudioFormat
	Close() error
}

// FileSource decodes a file into canonical-format blocks on a worker
// goroutine, handing them to the realtime thread through a bounded queue
// (spec.md §4.4).
type FileSource struct {
	nodeBase

	mu       sync.Mutex
	path     string
	contract PadContract
	pool     *BufferPool
	bus      *EventBus
	metrics  *Metrics
	logger   *slog.Logger

	queue     *boundedQueue
	stop      chan struct{}
	wg        sync.WaitGroup
	eofSignal sync.Once
}

// NewFileSource constructs an unconfigured FileSource.
func NewFileSource(name, description string) *FileSource {
	n := &FileSource{nodeBase: newNodeBase(name, NodeKindFileSource, 0, 1)}
	n.description = description
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger.With("component", "file_source", "node", name)
	return n
}

func (n *FileSource) SetPool(pool *BufferPool)     { n.pool = pool }
func (n *FileSource) SetEventBus(bus *EventBus)     { n.bus = bus }
func (n *FileSource) SetMetrics(m *Metrics)         { n.metrics = m }

func (n *FileSource) Configure(params map[string]string, contract PadContract) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeUnconfigured, NodeConfigured); err != nil {
		return err
	}
	path := params["path"]
	if path == "" {
		return ErrUnknownNode
	}
	n.path = path
	n.contract = contract
	n.state.Store(int32(NodeConfigured))
	return nil
}

func (n *FileSource) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeConfigured, NodeStopped); err != nil {
		return err
	}
	n.queue = newBoundedQueue(DefaultQueueDepth)
	n.stop = make(chan struct{})
	n.eofSignal = sync.Once{}

	n.wg.Add(1)
	go n.run()

	n.state.Store(int32(NodeRunning))
	return nil
}

func (n *FileSource) Stop() error {
	n.mu.Lock()
	stopCh := n.stop
	n.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
	}
	waitWithDeadline(&n.wg, DefaultJoinDeadline, n.logger)

	n.mu.Lock()
	if n.queue != nil {
		n.queue.Drain()
	}
	n.state.Store(int32(NodeStopped))
	n.mu.Unlock()
	return nil
}

func (n *FileSource) run() {
	defer n.wg.Done()

	decoder, err := n.openDecoder()
	if err != nil {
		n.logger.Error("file source decode failed to open", "path", n.path, "error", err)
		return
	}
	defer decoder.Close()

	frame := make([]byte, n.contract.Format.PlaneLenBytes(n.contract.Frames))
	for {
		select {
		case <-n.stop:
			return
		default:
		}

		got, err := decoder.Read(frame, n.contract.Frames)
		if got == 0 || err != nil {
			n.eofSignal.Do(func() {
				n.logger.Info("file source reached end of file", "path", n.path)
				if n.bus != nil {
					n.bus.Publish(Event{Kind: EventFileSourceEndOfFile, Node: n.name})
				}
			})
			return
		}

		buf, acquireErr := n.pool.Acquire(n.contract.Format, n.contract.Frames)
		if acquireErr != nil {
			n.logger.Warn("file source pool exhausted, dropping decoded block", "path", n.path)
			continue
		}
		copyDecoded(buf, n.contract.Format, frame, got)

		if err := n.queue.WaitPush(buf, n.stop); err != nil {
			buf.Release()
			return
		}
	}
}

func (n *FileSource) openDecoder() (fileDecoder, error) {
	if strings.HasSuffix(strings.ToLower(n.path), ".wav") {
		r, err := openWavReader(n.path)
		if err != nil {
			return nil, err
		}
		return &wavDecoderAdapter{r: r, target: n.contract.Format}, nil
	}
	return openFfmpegDecoder(n.path, n.contract.Format)
}

// Produce dequeues a ready block without blocking; the engine substitutes
// silence if none is ready (spec.md §4.4 FileSource: "produce dequeues
// non-blocking").
func (n *FileSource) Produce(pad int) (AudioBuffer, bool) {
	if pad != 0 || n.queue == nil {
		return nil, false
	}
	return n.queue.TryPop()
}

// wavDecoderAdapter converts wavReader's native-format frames into the
// target canonical format, since wavReader itself only knows how to read
// raw native-format bytes.
type wavDecoderAdapter struct {
	r      *wavReader
	target AudioFormat
	native []byte
}

func (a *wavDecoderAdapter) AudioFormat() AudioFormat { return a.target }

func (a *wavDecoderAdapter) Read(dst []byte, frames int) (int, error) {
	nativeFormat := a.r.AudioFormat()
	nativeLen := nativeFormat.PlaneLenBytes(frames)
	if len(a.native) < nativeLen {
		a.native = make([]byte, nativeLen)
	}
	got, err := a.r.ReadFrames(a.native, frames)
	if got == 0 {
		return 0, err
	}

	src := &rawDeviceBuffer{format: nativeFormat, frames: got, data: a.native}
	dstBuf := &rawDeviceBuffer{format: a.target, frames: got, data: dst}
	if convErr := Convert(src, dstBuf); convErr != nil {
		return 0, convErr
	}
	return got, nil
}

func (a *wavDecoderAdapter) Close() error { return a.r.Close() }

// copyDecoded copies got frames of already-canonical-format PCM from a
// flat byte slice into a pool buffer's plane(s).
func copyDecoded(buf AudioBuffer, format AudioFormat, raw []byte, got int) {
	plane, _ := buf.MutablePlane(0)
	n := format.PlaneLenBytes(got)
	copy(plane, raw[:n])
}

// FileSink encodes buffers accepted from the realtime thread on a worker
// goroutine (spec.md §4.4).
type FileSink struct {
	nodeBase

	mu          sync.Mutex
	path        string
	codec       string
	bitrateKbps int
	contract    PadContract
	bus         *EventBus
	metrics     *Metrics
	logger      *slog.Logger

	queue     *boundedQueue
	stop      chan struct{}
	wg        sync.WaitGroup
	overruns  uint64
	sampleCnt uint64
}

// NewFileSink constructs an unconfigured FileSink.
func NewFileSink(name, description string) *FileSink {
	n := &FileSink{nodeBase: newNodeBase(name, NodeKindFileSink, 1, 0)}
	n.description = description
	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger.With("component", "file_sink", "node", name)
	return n
}

func (n *FileSink) SetEventBus(bus *EventBus) { n.bus = bus }
func (n *FileSink) SetMetrics(m *Metrics)     { n.metrics = m }

func (n *FileSink) Configure(params map[string]string, contract PadContract) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeUnconfigured, NodeConfigured); err != nil {
		return err
	}
	path := params["path"]
	if path == "" {
		return ErrUnknownNode
	}
	n.path = path
	n.codec = params["codec"]
	if raw := params["bitrate_kbps"]; raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			n.bitrateKbps = v
		}
	}
	n.contract = contract
	n.state.Store(int32(NodeConfigured))
	return nil
}

func (n *FileSink) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.requireState(NodeConfigured, NodeStopped); err != nil {
		return err
	}
	n.queue = newBoundedQueue(DefaultQueueDepth)
	n.stop = make(chan struct{})

	n.wg.Add(1)
	go n.run()

	n.state.Store(int32(NodeRunning))
	return nil
}

func (n *FileSink) Stop() error {
	n.mu.Lock()
	stopCh := n.stop
	n.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
	}
	waitWithDeadline(&n.wg, DefaultJoinDeadline, n.logger)

	n.mu.Lock()
	if n.queue != nil {
		n.queue.Drain()
	}
	n.state.Store(int32(NodeStopped))
	n.mu.Unlock()
	return nil
}

// Accept enqueues a clone-ref of buf without blocking, dropping it and
// counting an overrun if the queue is full (spec.md §4.4 FileSink).
func (n *FileSink) Accept(pad int, buf AudioBuffer) error {
	if pad != 0 {
		return ErrUnknownNode
	}
	clone := buf.Clone()
	if n.queue.TryPush(clone) {
		return nil
	}
	clone.Release()
	n.overruns++
	if n.bus != nil {
		n.bus.Publish(Event{Kind: EventFileSinkOverrun, Node: n.name, Count: int(n.overruns)})
	}
	if n.metrics != nil {
		n.metrics.FileSinkOverruns.WithLabelValues(n.name).Inc()
	}
	return nil
}

func (n *FileSink) Overruns() uint64 { return n.overruns }

func (n *FileSink) run() {
	defer n.wg.Done()

	encoder, err := n.openEncoder()
	if err != nil {
		n.logger.Error("file sink encoder failed to open", "path", n.path, "error", err)
		return
	}
	defer func() {
		if closeErr := encoder.Close(); closeErr != nil {
			n.logger.Warn("file sink encoder close failed", "path", n.path, "error", closeErr)
		}
	}()

	for {
		buf, err := n.queue.WaitPop(n.stop)
		if err != nil {
			return
		}
		n.encodeAndWrite(encoder, buf)
		buf.Release()
	}
}

func (n *FileSink) encodeAndWrite(encoder fileEncoder, buf AudioBuffer) {
	n.sampleCnt += uint64(buf.Frames())

	encFormat := encoder.AudioFormat()
	if encFormat.Equal(buf.Format()) {
		if err := encoder.Write(buf.Plane(0)); err != nil {
			n.logger.Warn("file sink write failed", "path", n.path, "error", err)
		}
		return
	}

	scratch := make([]byte, encFormat.PlaneLenBytes(buf.Frames()))
	dst := &rawDeviceBuffer{format: encFormat, frames: buf.Frames(), data: scratch}
	if err := Convert(buf, dst); err != nil {
		n.logger.Warn("file sink convert failed", "path", n.path, "error", err)
		return
	}
	if err := encoder.Write(scratch); err != nil {
		n.logger.Warn("file sink write failed", "path", n.path, "error", err)
	}
}

func (n *FileSink) openEncoder() (fileEncoder, error) {
	if n.codec == "" || n.codec == "wav" || n.codec == "pcm" {
		return createWavWriter(n.path, n.contract.Format)
	}
	return createFfmpegEncoder(n.path, n.codec, n.bitrateKbps, n.contract.Format)
}
