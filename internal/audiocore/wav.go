package audiocore

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Minimal PCM WAV container codec, grounded on the teacher's export/wav.go
// header layout. Supports three interleaved sample types: 16-bit integer,
// 32-bit integer and 32-bit float; any other header is read as 16-bit
// integer.

type wavFormat struct {
	audioFormat   uint16 // 1 = PCM, 3 = IEEE float
	channels      uint16
	sampleRate    uint32
	bitsPerSample uint16
}

func (f wavFormat) sampleFormat() SampleFormat {
	switch {
	case f.audioFormat == 3 && f.bitsPerSample == 32:
		return SampleFormatF32
	case f.audioFormat == 1 && f.bitsPerSample == 16:
		return SampleFormatS16
	case f.audioFormat == 1 && f.bitsPerSample == 32:
		return SampleFormatS32
	default:
		return SampleFormatS16
	}
}

func wavFormatFor(sf SampleFormat) wavFormat {
	switch sf {
	case SampleFormatF32:
		return wavFormat{audioFormat: 3, bitsPerSample: 32}
	case SampleFormatS32:
		return wavFormat{audioFormat: 1, bitsPerSample: 32}
	default:
		return wavFormat{audioFormat: 1, bitsPerSample: 16}
	}
}

// wavReader decodes a PCM/IEEE-float RIFF/WAVE file frame-by-frame.
type wavReader struct {
	f      *os.File
	format wavFormat
	layout ChannelLayout
}

func openWavReader(path string) (*wavReader, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, err
	}
	r := &wavReader{f: f}
	if err := r.readHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func (r *wavReader) readHeader() error {
	var riff [12]byte
	if _, err := io.ReadFull(r.f, riff[:]); err != nil {
		return fmt.Errorf("wav: read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return fmt.Errorf("wav: not a RIFF/WAVE file")
	}

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r.f, chunkHeader[:]); err != nil {
			return fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(chunkHeader[0:4])
		size := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch id {
		case "fmt ":
			buf := make([]byte, size)
			if _, err := io.ReadFull(r.f, buf); err != nil {
				return fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			r.format.audioFormat = binary.LittleEndian.Uint16(buf[0:2])
			r.format.channels = binary.LittleEndian.Uint16(buf[2:4])
			r.format.sampleRate = binary.LittleEndian.Uint32(buf[4:8])
			r.format.bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			r.layout = layoutForChannelCount(int(r.format.channels))
		case "data":
			// Leave the file positioned at the start of sample data; size
			// is the remaining byte count but we read until EOF.
			return nil
		default:
			if _, err := r.f.Seek(int64(size), io.SeekCurrent); err != nil {
				return fmt.Errorf("wav: skip chunk %q: %w", id, err)
			}
		}
	}
}

// ReadFrames reads up to `frames` frames of raw interleaved bytes at the
// file's native format into dst, returning the number of frames actually
// read (less than requested at end-of-file).
func (r *wavReader) ReadFrames(dst []byte, frames int) (int, error) {
	bytesPerFrame := int(r.format.bitsPerSample/8) * int(r.format.channels)
	want := frames * bytesPerFrame
	if want > len(dst) {
		want = len(dst)
	}
	n, err := io.ReadFull(r.f, dst[:want])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, err
	}
	return n / bytesPerFrame, nil
}

func (r *wavReader) AudioFormat() AudioFormat {
	return AudioFormat{
		SampleFormat:  r.format.sampleFormat(),
		Interleaved:   true,
		ChannelLayout: r.layout,
		SampleRate:    int(r.format.sampleRate),
	}
}

func (r *wavReader) Close() error { return r.f.Close() }

func layoutForChannelCount(n int) ChannelLayout {
	switch n {
	case 1:
		return LayoutMono
	case 6:
		return Layout51
	default:
		return LayoutStereo
	}
}

// wavWriter encodes frames to a RIFF/WAVE file, patching the header's size
// fields on Close (the container's total length isn't known until all
// frames have been written).
type wavWriter struct {
	f           *os.File
	format      wavFormat
	dataBytes   uint32
	dataOffset  int64
}

func createWavWriter(path string, format AudioFormat) (*wavWriter, error) {
	f, err := os.Create(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, err
	}
	wf := wavFormatFor(format.SampleFormat)
	wf.channels = uint16(format.Channels())
	wf.sampleRate = uint32(format.SampleRate)

	w := &wavWriter{f: f, format: wf}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *wavWriter) writeHeader() error {
	blockAlign := w.format.channels * (w.format.bitsPerSample / 8)
	byteRate := w.format.sampleRate * uint32(blockAlign)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36) // patched on Close
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], w.format.audioFormat)
	binary.LittleEndian.PutUint16(header[22:24], w.format.channels)
	binary.LittleEndian.PutUint32(header[24:28], w.format.sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], w.format.bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], 0) // patched on Close

	if _, err := w.f.Write(header); err != nil {
		return err
	}
	w.dataOffset = 44
	return nil
}

// Write appends raw interleaved bytes already in the writer's native
// format.
func (w *wavWriter) Write(data []byte) error {
	n, err := w.f.Write(data)
	w.dataBytes += uint32(n)
	return err
}

func (w *wavWriter) AudioFormat() AudioFormat {
	return AudioFormat{
		SampleFormat:  w.format.sampleFormat(),
		Interleaved:   true,
		ChannelLayout: layoutForChannelCount(int(w.format.channels)),
		SampleRate:    int(w.format.sampleRate),
	}
}

// Close patches the RIFF and data chunk sizes and closes the file (spec.md
// §4.4 FileSink: "stop flushes the encoder... and writes the trailer").
func (w *wavWriter) Close() error {
	riffSize := 36 + w.dataBytes
	if _, err := w.f.WriteAt(leUint32(riffSize), 4); err != nil {
		w.f.Close()
		return err
	}
	if _, err := w.f.WriteAt(leUint32(w.dataBytes), 40); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func leUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}
