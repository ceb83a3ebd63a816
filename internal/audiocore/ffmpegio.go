package audiocore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/brightloom/audiopath/internal/logging"
)

// ffmpegDecoder decodes an arbitrary container/codec into raw interleaved
// f32le PCM at a fixed format by piping through the ffmpeg binary.
// Grounded on the teacher's utils/ffmpeg/process.go subprocess lifecycle:
// exec.CommandContext, a stdout pipe read to EOF, sync.Once-guarded
// shutdown.
type ffmpegDecoder struct {
	cmd     *exec.Cmd
	stdout  *bufio.Reader
	cancel  context.CancelFunc
	format  AudioFormat
	once    sync.Once
	running atomic.Bool
	logger  *slog.Logger
}

func openFfmpegDecoder(path string, target AudioFormat) (*ffmpegDecoder, error) {
	ctx, cancel := context.WithCancel(context.Background())
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "f32le",
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels()),
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...) //nolint:gosec // path comes from trusted configuration

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg decoder: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg decoder: start: %w", err)
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}

	d := &ffmpegDecoder{
		cmd:    cmd,
		stdout: bufio.NewReaderSize(stdout, 64*1024),
		cancel: cancel,
		format: AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: target.ChannelLayout, SampleRate: target.SampleRate},
		logger: logger.With("component", "ffmpeg_decoder", "path", path),
	}
	d.running.Store(true)
	return d, nil
}

func (d *ffmpegDecoder) AudioFormat() AudioFormat { return d.format }

// Read fills dst with up to frames frames of raw f32le PCM, returning the
// number of frames actually read (fewer at end-of-stream).
func (d *ffmpegDecoder) Read(dst []byte, frames int) (int, error) {
	bytesPerFrame := d.format.SampleFormat.BytesPerSample() * d.format.Channels()
	want := frames * bytesPerFrame
	if want > len(dst) {
		want = len(dst)
	}
	n, err := io.ReadFull(d.stdout, dst[:want])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return n / bytesPerFrame, err
	}
	return n / bytesPerFrame, nil
}

func (d *ffmpegDecoder) Close() error {
	var err error
	d.once.Do(func() {
		d.running.Store(false)
		d.cancel()
		err = d.cmd.Wait()
	})
	return err
}

// ffmpegEncoder pipes raw interleaved PCM into ffmpeg, which encodes and
// writes the target container/codec to path.
type ffmpegEncoder struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	cancel  context.CancelFunc
	format  AudioFormat
	once    sync.Once
	running atomic.Bool
	logger  *slog.Logger
}

func createFfmpegEncoder(path, codec string, bitrateKbps int, format AudioFormat) (*ffmpegEncoder, error) {
	ctx, cancel := context.WithCancel(context.Background())
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "f32le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels()),
		"-i", "pipe:0",
	}
	if codec != "" {
		args = append(args, "-c:a", codec)
	}
	if bitrateKbps > 0 {
		args = append(args, "-b:a", strconv.Itoa(bitrateKbps)+"k")
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...) //nolint:gosec // path/codec come from trusted configuration
	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg encoder: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg encoder: start: %w", err)
	}

	logger := logging.ForService("audiocore")
	if logger == nil {
		logger = slog.Default()
	}

	e := &ffmpegEncoder{
		cmd:    cmd,
		stdin:  stdin,
		cancel: cancel,
		format: AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: format.ChannelLayout, SampleRate: format.SampleRate},
		logger: logger.With("component", "ffmpeg_encoder", "path", path, "codec", codec),
	}
	e.running.Store(true)
	return e, nil
}

func (e *ffmpegEncoder) AudioFormat() AudioFormat { return e.format }

func (e *ffmpegEncoder) Write(data []byte) error {
	_, err := e.stdin.Write(data)
	return err
}

// Close flushes the encoder (closing stdin signals end-of-stream to
// ffmpeg, which then writes the trailer) and waits for it to exit (spec.md
// §4.4 FileSink: "stop flushes the encoder... and writes the trailer").
func (e *ffmpegEncoder) Close() error {
	var err error
	e.once.Do(func() {
		e.running.Store(false)
		closeErr := e.stdin.Close()
		waitErr := e.cmd.Wait()
		e.cancel()
		if closeErr != nil {
			err = closeErr
		} else {
			err = waitErr
		}
	})
	return err
}
