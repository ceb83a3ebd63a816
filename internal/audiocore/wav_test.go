package audiocore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWav_WriteThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	format := AudioFormat{SampleFormat: SampleFormatS16, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 44100}
	w, err := createWavWriter(path, format)
	require.NoError(t, err)

	frame := []byte{0x11, 0x22, 0x33, 0x44} // one stereo s16 frame
	require.NoError(t, w.Write(frame))
	require.NoError(t, w.Write(frame))
	require.NoError(t, w.Close())

	r, err := openWavReader(path)
	require.NoError(t, err)
	defer r.Close()

	got := r.AudioFormat()
	require.Equal(t, SampleFormatS16, got.SampleFormat)
	require.Equal(t, 44100, got.SampleRate)
	require.Equal(t, LayoutStereo.Name, got.ChannelLayout.Name)

	dst := make([]byte, 64)
	n, err := r.ReadFrames(dst, 8)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, frame, dst[0:4])
	require.Equal(t, frame, dst[4:8])
}

func TestLayoutForChannelCount(t *testing.T) {
	require.Equal(t, LayoutMono.Name, layoutForChannelCount(1).Name)
	require.Equal(t, LayoutStereo.Name, layoutForChannelCount(2).Name)
	require.Equal(t, Layout51.Name, layoutForChannelCount(6).Name)
}
