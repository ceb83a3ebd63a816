package audiocore

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	ffmpeg "github.com/csnewman/ffmpeg-go"

	"github.com/brightloom/audiopath/internal/logging"
)

// ffmpegFilterProc drives an ffmpeg libavfilter graph directly through
// AVFilterGraph's push/pull API: one abuffer source, the parsed `-af`
// style filter chain, one abuffersink. Grounded on jivetalking's
// internal/processor/processor.go processWithFilters, which reads a
// frame from its decoder, pushes it via AVBuffersrcAddFrameFlags, then
// drains AVBuffersinkGetFrame until EAgain/EOF before encoding each
// pulled frame; that push/one-or-more-pulls shape maps directly onto
// FilterHost's per-block Push/Pull contract.
type ffmpegFilterProc struct {
	graph        *ffmpeg.AVFilterGraph
	bufferSrc    *ffmpeg.AVFilterContext
	bufferSink   *ffmpeg.AVFilterContext
	pushFrame    *ffmpeg.AVFrame
	pullFrame    *ffmpeg.AVFrame

	inputFormat  AudioFormat
	outputFormat AudioFormat
	frames       int

	once    sync.Once
	running atomic.Bool
	logger  *slog.Logger
}

func startFfmpegFilterProc(graphDescription string, inputFormat, outputFormat AudioFormat, frames int) (*ffmpegFilterProc, error) {
	graph := ffmpeg.AVFilterGraphAlloc()
	if graph == nil {
		return nil, fmt.Errorf("filter proc: alloc filter graph")
	}

	srcArgs := fmt.Sprintf("sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		inputFormat.SampleRate, avSampleFmtName(inputFormat.SampleFormat), avChannelLayoutName(inputFormat.ChannelLayout))
	bufferSrc, err := ffmpeg.AVFilterGraphCreateFilter(
		ffmpeg.AVFilterGetByName("abuffer"), "audiopath_src", srcArgs, nil, graph)
	if err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, fmt.Errorf("filter proc: create abuffer: %w", err)
	}

	bufferSink, err := ffmpeg.AVFilterGraphCreateFilter(
		ffmpeg.AVFilterGetByName("abuffersink"), "audiopath_sink", "", nil, graph)
	if err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, fmt.Errorf("filter proc: create abuffersink: %w", err)
	}

	if err := ffmpeg.AVFilterGraphParsePtr(graph, graphDescription, bufferSrc, bufferSink); err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, fmt.Errorf("filter proc: parse graph %q: %w", graphDescription, err)
	}
	if err := ffmpeg.AVFilterGraphConfig(graph, nil); err != nil {
		ffmpeg.AVFilterGraphFree(&graph)
		return nil, fmt.Errorf("filter proc: config graph: %w", err)
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}

	p := &ffmpegFilterProc{
		graph:        graph,
		bufferSrc:    bufferSrc,
		bufferSink:   bufferSink,
		pushFrame:    ffmpeg.AVFrameAlloc(),
		pullFrame:    ffmpeg.AVFrameAlloc(),
		inputFormat:  inputFormat,
		outputFormat: outputFormat,
		frames:       frames,
		logger:       logger.With("component", "filter_proc", "graph", graphDescription),
	}
	p.running.Store(true)
	return p, nil
}

// Write pushes one block of interleaved planar bytes into the filter
// graph's source buffer, wrapping it in an AVFrame sized for frames
// samples of inputFormat.
func (p *ffmpegFilterProc) Write(data []byte) error {
	p.pushFrame.SetNbSamples(p.frames)
	p.pushFrame.SetFormat(avSampleFmtID(p.inputFormat.SampleFormat))
	p.pushFrame.SetChannelLayout(avChannelLayoutName(p.inputFormat.ChannelLayout))
	p.pushFrame.SetSampleRate(p.inputFormat.SampleRate)
	if err := ffmpeg.AVFrameGetBuffer(p.pushFrame, 0); err != nil {
		return fmt.Errorf("filter proc: alloc push frame buffer: %w", err)
	}
	copy(p.pushFrame.Data(0), data)

	if err := ffmpeg.AVBuffersrcAddFrameFlags(p.bufferSrc, p.pushFrame, 0); err != nil {
		ffmpeg.AVFrameUnref(p.pushFrame)
		return fmt.Errorf("filter proc: push frame: %w", err)
	}
	ffmpeg.AVFrameUnref(p.pushFrame)
	return nil
}

// Read pulls the next filtered frame, copying its first plane into
// dst. Returns 0, nil when the graph needs more input before it can
// produce a block (ffmpeg.EAgain) rather than an error, matching the
// "needs more input" case FilterHost.Pull already expects.
func (p *ffmpegFilterProc) Read(dst []byte) (int, error) {
	err := ffmpeg.AVBuffersinkGetFrame(p.bufferSink, p.pullFrame)
	switch {
	case err == ffmpeg.EAgain || err == ffmpeg.AVErrorEOF:
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("filter proc: pull frame: %w", err)
	}
	defer ffmpeg.AVFrameUnref(p.pullFrame)

	n := copy(dst, p.pullFrame.Data(0))
	return n, nil
}

// SendCommand applies a live parameter change through libavfilter's own
// command channel (avfilter_graph_send_command), the real mechanism
// ffmpeg's sendcmd/zmq filters are built on, rather than a hand-rolled
// side channel.
func (p *ffmpegFilterProc) SendCommand(filterTarget, param string, value float64) error {
	_, err := ffmpeg.AVFilterGraphSendCommand(p.graph, filterTarget, param, fmt.Sprintf("%v", value), 0)
	if err != nil {
		return fmt.Errorf("filter proc: send command to %s: %w", filterTarget, err)
	}
	return nil
}

func (p *ffmpegFilterProc) Close() error {
	p.once.Do(func() {
		p.running.Store(false)
		ffmpeg.AVFrameFree(&p.pushFrame)
		ffmpeg.AVFrameFree(&p.pullFrame)
		ffmpeg.AVFilterGraphFree(&p.graph)
	})
	return nil
}

func avSampleFmtName(f SampleFormat) string {
	switch f {
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "flt"
	default:
		return "flt"
	}
}

func avSampleFmtID(f SampleFormat) int {
	switch f {
	case SampleFormatS16:
		return ffmpeg.AV_SAMPLE_FMT_S16
	case SampleFormatS32:
		return ffmpeg.AV_SAMPLE_FMT_S32
	case SampleFormatF32:
		return ffmpeg.AV_SAMPLE_FMT_FLT
	default:
		return ffmpeg.AV_SAMPLE_FMT_FLT
	}
}

func avChannelLayoutName(layout ChannelLayout) string {
	switch layout {
	case LayoutMono:
		return "mono"
	case LayoutStereo:
		return "stereo"
	default:
		return "stereo"
	}
}
