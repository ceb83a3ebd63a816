package audiocore

import (
	"encoding/binary"
	"math"

	"github.com/brightloom/audiopath/internal/errors"
)

// SampleFormat enumerates the sample encodings a Pad contract may declare.
type SampleFormat int

const (
	SampleFormatS16 SampleFormat = iota
	SampleFormatS24 // 24 bits carried in a 32-bit word, MSB-aligned
	SampleFormatS32
	SampleFormatF32
	SampleFormatF64
)

// String implements fmt.Stringer.
func (f SampleFormat) String() string {
	switch f {
	case SampleFormatS16:
		return "s16"
	case SampleFormatS24:
		return "s24-in-s32"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	case SampleFormatF64:
		return "f64"
	default:
		return "unknown"
	}
}

// BytesPerSample returns the on-wire size of one sample in this format.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFormatS16:
		return 2
	case SampleFormatS24, SampleFormatS32, SampleFormatF32:
		return 4
	case SampleFormatF64:
		return 8
	default:
		return 0
	}
}

// Channel names a semantic speaker position within a ChannelLayout.
type Channel int

const (
	ChannelFrontLeft Channel = iota
	ChannelFrontRight
	ChannelFrontCenter
	ChannelLFE
	ChannelSurroundLeft
	ChannelSurroundRight
)

// ChannelLayout is an ordered list of semantic channels. Two layouts with
// the same semantic set but different order are convertible via a
// permutation; layouts with different semantic sets are not convertible
// (IncompatibleLayout).
type ChannelLayout struct {
	Name     string
	Channels []Channel
}

// Mono, Stereo and Layout51 are the only layouts this engine recognizes;
// configuration selects one by name ("mono", "stereo", "5.1"), an
// unrecognized name falls back to stereo, and no other layout can be
// declared.
var (
	LayoutMono   = ChannelLayout{Name: "mono", Channels: []Channel{ChannelFrontCenter}}
	LayoutStereo = ChannelLayout{Name: "stereo", Channels: []Channel{ChannelFrontLeft, ChannelFrontRight}}
	Layout51     = ChannelLayout{Name: "5.1", Channels: []Channel{
		ChannelFrontLeft, ChannelFrontRight, ChannelFrontCenter,
		ChannelLFE, ChannelSurroundLeft, ChannelSurroundRight,
	}}
)

func (l ChannelLayout) channelSet() map[Channel]struct{} {
	set := make(map[Channel]struct{}, len(l.Channels))
	for _, c := range l.Channels {
		set[c] = struct{}{}
	}
	return set
}

// sameSemanticSet reports whether two layouts carry the same channels,
// possibly in a different order.
func sameSemanticSet(a, b ChannelLayout) bool {
	if len(a.Channels) != len(b.Channels) {
		return false
	}
	as := a.channelSet()
	for _, c := range b.Channels {
		if _, ok := as[c]; !ok {
			return false
		}
	}
	return true
}

// permutation returns, for each index in dst.Channels, the index in
// src.Channels carrying the same semantic channel.
func permutation(src, dst ChannelLayout) ([]int, error) {
	if !sameSemanticSet(src, dst) {
		return nil, errors.New(errors.NewStd("incompatible channel layout")).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "channel_layout_permutation").
			Context("src_layout", src.Name).
			Context("dst_layout", dst.Name).
			Build()
	}
	index := make(map[Channel]int, len(src.Channels))
	for i, c := range src.Channels {
		index[c] = i
	}
	perm := make([]int, len(dst.Channels))
	for i, c := range dst.Channels {
		perm[i] = index[c]
	}
	return perm, nil
}

// AudioFormat is the format contract carried by every Pad and the
// Engine's canonical internal format.
type AudioFormat struct {
	SampleFormat  SampleFormat
	Interleaved   bool
	ChannelLayout ChannelLayout
	SampleRate    int
}

// Channels returns the channel count implied by the layout.
func (f AudioFormat) Channels() int { return len(f.ChannelLayout.Channels) }

// Equal reports whether two formats are identical (not merely
// convertible).
func (f AudioFormat) Equal(o AudioFormat) bool {
	return f.SampleFormat == o.SampleFormat &&
		f.Interleaved == o.Interleaved &&
		f.ChannelLayout.Name == o.ChannelLayout.Name &&
		f.SampleRate == o.SampleRate
}

// PlaneLenBytes computes the required plane length in bytes for the given
// frame count, per spec.md §3's invariant:
// plane_len_bytes = frames * bytes_per_sample * (interleaved ? channels : 1).
func (f AudioFormat) PlaneLenBytes(frames int) int {
	n := frames * f.SampleFormat.BytesPerSample()
	if f.Interleaved {
		n *= f.Channels()
	}
	return n
}

// PlaneCount is the number of byte planes a buffer of this format needs:
// 1 for interleaved, one per channel for planar.
func (f AudioFormat) PlaneCount() int {
	if f.Interleaved {
		return 1
	}
	return f.Channels()
}

// Convert performs the sample-format and channel-layout conversion
// described in spec.md §4.2. src and dst must already agree on sample
// rate (resampling is out of scope) and on the semantic channel set
// (IncompatibleLayout otherwise). It reads frames from src's planes and
// writes frames into dst's planes.
func Convert(src AudioBuffer, dst AudioBuffer) error {
	sf, df := src.Format(), dst.Format()
	if sf.SampleRate != df.SampleRate {
		return errors.New(errors.NewStd("sample rate mismatch")).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "sample_rate_mismatch").
			Context("src_rate", sf.SampleRate).
			Context("dst_rate", df.SampleRate).
			Build()
	}
	if src.Frames() != dst.Frames() {
		return errors.New(errors.NewStd("frame count mismatch")).
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Context("operation", "frame_count_mismatch").
			Build()
	}
	perm, err := permutation(sf.ChannelLayout, df.ChannelLayout)
	if err != nil {
		return err
	}

	frames := src.Frames()
	channels := df.Channels()

	for frame := range frames {
		for dstCh := 0; dstCh < channels; dstCh++ {
			srcCh := perm[dstCh]
			v := readSample(src, sf, srcCh, frame)
			writeSample(dst, df, dstCh, frame, v)
		}
	}
	return nil
}

// readSample reads one sample as a float64 in [-1,1] (or the integer's
// natural range collapsed to that scale), from channel ch, frame idx.
func readSample(buf AudioBuffer, f AudioFormat, ch, idx int) float64 {
	plane, offset := planeOffset(buf, f, ch, idx)
	switch f.SampleFormat {
	case SampleFormatS16:
		v := int16(binary.LittleEndian.Uint16(plane[offset:]))
		return float64(v) / 32768.0
	case SampleFormatS24:
		b0, b1, b2 := plane[offset+1], plane[offset+2], plane[offset+3]
		v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
		if v&0x800000 != 0 {
			v |= -0x1000000
		}
		return float64(v) / 8388608.0
	case SampleFormatS32:
		v := int32(binary.LittleEndian.Uint32(plane[offset:]))
		return float64(v) / 2147483648.0
	case SampleFormatF32:
		bits := binary.LittleEndian.Uint32(plane[offset:])
		return float64(math.Float32frombits(bits))
	case SampleFormatF64:
		bits := binary.LittleEndian.Uint64(plane[offset:])
		return math.Float64frombits(bits)
	default:
		return 0
	}
}

// writeSample writes a float64 sample in [-1,1], clamping and scaling
// into the destination integer range where applicable.
func writeSample(buf AudioBuffer, f AudioFormat, ch, idx int, v float64) {
	plane, offset := planeOffset(buf, f, ch, idx)
	switch f.SampleFormat {
	case SampleFormatS16:
		binary.LittleEndian.PutUint16(plane[offset:], uint16(int16(min(clampScale(v, 32768), 32767))))
	case SampleFormatS24:
		iv := int32(min(clampScale(v, 8388608), 8388607))
		plane[offset] = 0
		plane[offset+1] = byte(iv)
		plane[offset+2] = byte(iv >> 8)
		plane[offset+3] = byte(iv >> 16)
	case SampleFormatS32:
		binary.LittleEndian.PutUint32(plane[offset:], uint32(int32(min(clampScale(v, 2147483648), 2147483647))))
	case SampleFormatF32:
		binary.LittleEndian.PutUint32(plane[offset:], math.Float32bits(float32(clamp(v))))
	case SampleFormatF64:
		binary.LittleEndian.PutUint64(plane[offset:], math.Float64bits(clamp(v)))
	}
}

func clamp(v float64) float64 {
	switch {
	case v > 1.0:
		return 1.0
	case v < -1.0:
		return -1.0
	default:
		return v
	}
}

func clampScale(v float64, fullScale float64) float64 {
	return clamp(v) * fullScale
}

// planeOffset resolves the plane slice and byte offset for channel ch,
// frame idx, given format f (interleaved or planar).
func planeOffset(buf AudioBuffer, f AudioFormat, ch, idx int) ([]byte, int) {
	bps := f.SampleFormat.BytesPerSample()
	if f.Interleaved {
		plane := buf.Plane(0)
		return plane, (idx*f.Channels() + ch) * bps
	}
	plane := buf.Plane(ch)
	return plane, idx * bps
}
