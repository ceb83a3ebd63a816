package audiocore

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterName(t *testing.T) {
	require.Equal(t, "equalizer", filterName("equalizer f=1000 Q=1 gain=-10"))
	require.Equal(t, "", filterName(""))
}

func TestRebuildDescription_SubstitutesCellValues(t *testing.T) {
	cells := map[string]*paramCell{
		paramKey("equalizer", "gain"): {},
	}
	cells[paramKey("equalizer", "gain")].value.Store(3.5)

	got := rebuildDescription("equalizer f=1000 Q=1 gain=-10", cells)
	require.Equal(t, "equalizer f=1000 Q=1 gain=3.5", got)
}

func TestRebuildDescription_LeavesUncellTermsAlone(t *testing.T) {
	got := rebuildDescription("volume volume=0.5", map[string]*paramCell{})
	require.Equal(t, "volume volume=0.5", got)
}

func requireFfmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available in PATH")
	}
}

func TestFilterHost_ConfigureRegistersParameterCells(t *testing.T) {
	requireFfmpeg(t)

	format := AudioFormat{SampleFormat: SampleFormatF32, Interleaved: true, ChannelLayout: LayoutStereo, SampleRate: 48000}
	h := NewFilterHost()
	require.NoError(t, h.Configure("volume volume=0.5", format, format, 64))
	defer h.Close()

	require.NoError(t, h.UpdateParameter("volume", "volume", 0.25))
	require.ErrorIs(t, h.UpdateParameter("volume", "missing", 1.0), ErrUnknownParameter)
}
