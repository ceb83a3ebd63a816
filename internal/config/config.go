// Package config loads and validates the declarative document engine.load_config
// consumes (spec.md §6). Grounded on jivetalking's own configuration
// surface, which is a handful of kong-bound CLI flags rather than a file
// format; since this daemon needs a file-based document, the file layer
// follows samoyed's go.mod (a direct gopkg.in/yaml.v3 dependency): a
// single typed struct populated via yaml.Unmarshal, with defaults filled
// in by hand afterward rather than through a config-management library.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeConfig is one entry in the document's nodes[] list.
type NodeConfig struct {
	Name        string            `yaml:"name"`
	Type        string            `yaml:"type"`
	Params      map[string]string `yaml:"params,omitempty"`
	InputPads   int               `yaml:"input_pads,omitempty"`
	OutputPads  int               `yaml:"output_pads,omitempty"`
	Description string            `yaml:"description,omitempty"`
}

// ConnectionConfig is one entry in the document's connections[] list.
type ConnectionConfig struct {
	SourceName            string `yaml:"source_name"`
	SourcePad             int    `yaml:"source_pad"`
	SinkName              string `yaml:"sink_name"`
	SinkPad               int    `yaml:"sink_pad"`
	AllowFormatConversion bool   `yaml:"allow_format_conversion"`
	BufferPolicy          string `yaml:"buffer_policy"` // move | shared_ref | auto
}

// ControlCommandConfig is one entry in initial_control_commands[],
// applied once via ControlClient after startup (spec.md §4.7).
type ControlCommandConfig struct {
	Address string `yaml:"address"`
	Args    []any  `yaml:"args,omitempty"`
}

// RotationConfig maps onto logging.RotationSettings.
type RotationConfig struct {
	Policy     string `yaml:"policy"` // size | daily | weekly
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LoggingConfig is the ambient logging section every audiopathd
// deployment carries regardless of the spec's engine-scoped Non-goals.
type LoggingConfig struct {
	Level    string         `yaml:"level"`
	FilePath string         `yaml:"file_path,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

// ControlConfig addresses the external mixer ControlClient connects to
// (spec.md §4.7).
type ControlConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Document is the full declarative configuration engine.load_config
// consumes (spec.md §6).
type Document struct {
	DeviceName     string `yaml:"device_name,omitempty"`
	SampleRate     int    `yaml:"sample_rate,omitempty"`
	BufferSize     int    `yaml:"buffer_size,omitempty"`
	InternalFormat string `yaml:"internal_format"` // f32 | f64 | s16 | s24 | s32
	Interleaved    bool   `yaml:"interleaved"`
	InternalLayout string `yaml:"internal_layout"` // mono | stereo | 5.1
	AutoConfigure  bool   `yaml:"auto_configure"`

	Nodes                  []NodeConfig           `yaml:"nodes,omitempty"`
	Connections            []ConnectionConfig     `yaml:"connections,omitempty"`
	InitialControlCommands []ControlCommandConfig `yaml:"initial_control_commands,omitempty"`

	Control ControlConfig `yaml:"control,omitempty"`
	Logging LoggingConfig `yaml:"logging"`
}

// Dump renders the fully-defaulted, validated document back to YAML, so
// `audiopathd validate` can show operators the effective configuration
// instead of just the file they wrote (defaults and all).
func Dump(doc *Document) (string, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("config: dump: %w", err)
	}
	return string(out), nil
}

// Load reads and validates a configuration document from path: defaults
// are set on a zero-value Document first, the file is unmarshaled over
// them, and whatever the file left unset keeps the default (the same
// effect viper.SetDefault+ReadInConfig gives, without the library).
func Load(path string) (*Document, error) {
	doc := Document{}
	setDefaults(&doc)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}

	if err := Validate(&doc); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &doc, nil
}

func setDefaults(doc *Document) {
	doc.AutoConfigure = true
	doc.InternalFormat = "f32"
	doc.InternalLayout = "stereo"
	doc.Interleaved = true
	doc.Logging.Level = "info"
	doc.Logging.Rotation.Policy = "size"
	doc.Logging.Rotation.MaxSizeMB = 100
	doc.Logging.Rotation.MaxBackups = 3
	doc.Logging.Rotation.MaxAgeDays = 28
}

// Validate checks the structural invariants spec.md §3 requires before
// the document reaches BuildGraph: every node name unique (checked again
// by BuildGraph, but surfacing it here gives a config-file-line-shaped
// error before any node is constructed), and every node type recognized.
func Validate(doc *Document) error {
	seen := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node missing name")
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = true

		switch n.Type {
		case "hardware_source", "hardware_sink", "file_source", "file_sink", "filter_processor":
		default:
			return fmt.Errorf("node %q: unrecognized type %q", n.Name, n.Type)
		}
	}

	for _, c := range doc.Connections {
		if !seen[c.SourceName] {
			return fmt.Errorf("connection references unknown source node %q", c.SourceName)
		}
		if !seen[c.SinkName] {
			return fmt.Errorf("connection references unknown sink node %q", c.SinkName)
		}
		switch c.BufferPolicy {
		case "", "move", "shared_ref", "auto":
		default:
			return fmt.Errorf("connection %s->%s: unrecognized buffer_policy %q", c.SourceName, c.SinkName, c.BufferPolicy)
		}
	}
	return nil
}
