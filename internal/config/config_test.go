package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "audiopath.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_DefaultsAppliedWhenOmitted(t *testing.T) {
	path := writeConfig(t, `
device_name: "default"
sample_rate: 48000
buffer_size: 256
nodes:
  - name: src
    type: hardware_source
    params:
      channels: "0,1"
  - name: snk
    type: hardware_sink
    params:
      channels: "0,1"
connections:
  - source_name: src
    sink_name: snk
`)

	doc, err := Load(path)
	require.NoError(t, err)
	require.True(t, doc.AutoConfigure)
	require.Equal(t, "f32", doc.InternalFormat)
	require.Equal(t, "stereo", doc.InternalLayout)
	require.True(t, doc.Interleaved)
	require.Equal(t, "info", doc.Logging.Level)
	require.Equal(t, "size", doc.Logging.Rotation.Policy)
	require.Equal(t, 100, doc.Logging.Rotation.MaxSizeMB)
}

func TestLoad_RejectsUnknownNodeType(t *testing.T) {
	path := writeConfig(t, `
nodes:
  - name: bogus
    type: not_a_real_type
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsConnectionToUnknownNode(t *testing.T) {
	path := writeConfig(t, `
nodes:
  - name: src
    type: hardware_source
connections:
  - source_name: src
    sink_name: ghost
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_RejectsDuplicateNodeNames(t *testing.T) {
	doc := &Document{
		Nodes: []NodeConfig{
			{Name: "dup", Type: "hardware_source"},
			{Name: "dup", Type: "hardware_sink"},
		},
	}
	err := Validate(doc)
	require.Error(t, err)
}

func TestValidate_RejectsUnrecognizedBufferPolicy(t *testing.T) {
	doc := &Document{
		Nodes: []NodeConfig{
			{Name: "a", Type: "hardware_source"},
			{Name: "b", Type: "hardware_sink"},
		},
		Connections: []ConnectionConfig{
			{SourceName: "a", SinkName: "b", BufferPolicy: "bogus"},
		},
	}
	err := Validate(doc)
	require.Error(t, err)
}

func TestValidate_AcceptsWellFormedDocument(t *testing.T) {
	doc := &Document{
		Nodes: []NodeConfig{
			{Name: "a", Type: "hardware_source"},
			{Name: "b", Type: "filter_processor"},
			{Name: "c", Type: "hardware_sink"},
		},
		Connections: []ConnectionConfig{
			{SourceName: "a", SinkName: "b", BufferPolicy: "move"},
			{SourceName: "b", SinkName: "c", BufferPolicy: "auto"},
		},
	}
	require.NoError(t, Validate(doc))
}

func TestDump_RendersNodesAndConnectionsAsYAML(t *testing.T) {
	doc := &Document{
		SampleRate:     44100,
		InternalFormat: "f32",
		InternalLayout: "stereo",
		Nodes: []NodeConfig{
			{Name: "src", Type: "file_source", Params: map[string]string{"path": "in.wav"}},
		},
		Connections: []ConnectionConfig{
			{SourceName: "src", SinkName: "snk", BufferPolicy: "move"},
		},
		Logging: LoggingConfig{Level: "info", Rotation: RotationConfig{Policy: "size", MaxSizeMB: 100}},
	}

	out, err := Dump(doc)
	require.NoError(t, err)
	require.Contains(t, out, "name: src")
	require.Contains(t, out, "type: file_source")
	require.Contains(t, out, "sample_rate: 44100")
	require.Contains(t, out, "buffer_policy: move")
}
