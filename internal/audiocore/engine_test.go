package audiocore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brightloom/audiopath/internal/config"
)

// TestEngine_FileToFileTickMovesData exercises LoadConfig/Start/Stop and a
// few manual runTick invocations over a file_source -> file_sink topology,
// which needs neither a portaudio hardware device nor an ffmpeg filter
// graph to reach end to end (spec.md §4.6 construction + tick).
func TestEngine_FileToFileTickMovesData(t *testing.T) {
	format := AudioFormat{SampleFormat: SampleFormatS16, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 44100}
	srcPath := writeWavFixture(t, format, 64)
	dstPath := filepath.Join(t.TempDir(), "sink.wav")

	doc := &config.Document{
		SampleRate:     44100,
		BufferSize:     64,
		InternalFormat: "s16",
		Interleaved:    true,
		InternalLayout: "stereo",
		Nodes: []config.NodeConfig{
			{Name: "src", Type: "file_source", Params: map[string]string{"path": srcPath}},
			{Name: "snk", Type: "file_sink", Params: map[string]string{"path": dstPath, "codec": "wav"}},
		},
		Connections: []config.ConnectionConfig{
			{SourceName: "src", SinkName: "snk", BufferPolicy: "move"},
		},
	}

	e := NewEngine()
	require.NoError(t, e.LoadConfig(doc))
	require.Equal(t, EngineLoaded, e.State())
	require.NoError(t, e.Start())
	require.Equal(t, EngineRunning, e.State())

	// Tick repeatedly, giving the file source's decode worker time to
	// produce a block and the file sink's encode worker time to drain it.
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		e.runTick(nil, nil, 64)
		time.Sleep(5 * time.Millisecond)
	}

	require.NoError(t, e.Stop())
	require.NoError(t, e.Shutdown())
	require.Equal(t, EngineShutdown, e.State())

	info, err := os.Stat(dstPath)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(44)) // more than just the WAV header
}

func TestEngine_UpdateParameterBeforeLoadConfigRejected(t *testing.T) {
	e := NewEngine()
	err := e.UpdateParameter("ghost", "volume", "volume", 1.0)
	require.ErrorIs(t, err, ErrNotRunning)
}

func TestEngine_LoadConfigRejectsCycles(t *testing.T) {
	doc := &config.Document{
		SampleRate:     44100,
		BufferSize:     64,
		InternalFormat: "f32",
		InternalLayout: "stereo",
		Nodes: []config.NodeConfig{
			{Name: "a", Type: "filter_processor", Params: map[string]string{"graph": "volume volume=1.0"}},
			{Name: "b", Type: "filter_processor", Params: map[string]string{"graph": "volume volume=1.0"}},
		},
		Connections: []config.ConnectionConfig{
			{SourceName: "a", SinkName: "b", BufferPolicy: "move"},
			{SourceName: "b", SinkName: "a", BufferPolicy: "move"},
		},
	}

	e := NewEngine()
	err := e.LoadConfig(doc)
	require.Error(t, err)
}
