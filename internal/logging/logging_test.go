package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewFileLogger_WritesJSONWithServiceAttribute(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "service.log")
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelInfo)

	logger, closeFunc, err := NewFileLogger(path, "audiocore", levelVar, DefaultRotationSettings())
	require.NoError(t, err)
	defer closeFunc()

	logger.Info("tick completed", "frames", 64)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"service":"audiocore"`)
	require.Contains(t, string(data), `"frames":64`)
}

func TestNewFileLogger_DefaultsAppliedForZeroRotationValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.log")
	levelVar := new(slog.LevelVar)

	_, closeFunc, err := NewFileLogger(path, "svc", levelVar, RotationSettings{})
	require.NoError(t, err)
	defer closeFunc()
}

func TestSetOutput_RejectsNilWriters(t *testing.T) {
	require.Error(t, SetOutput(nil, &bytes.Buffer{}))
	require.Error(t, SetOutput(&bytes.Buffer{}, nil))
}

func TestSetOutput_RedirectsStructuredAndHumanReadableLoggers(t *testing.T) {
	var structuredBuf, humanBuf bytes.Buffer
	require.NoError(t, SetOutput(&structuredBuf, &humanBuf))

	Structured().Info("structured message")
	HumanReadable().Info("human message")

	require.Contains(t, structuredBuf.String(), "structured message")
	require.Contains(t, humanBuf.String(), "human message")
}

// ForService reads the global structured logger, which SetOutput (used
// throughout this file instead of Init, to avoid Init's "logs/" directory
// side effect) has already populated by the time this test runs.
func TestForService_AddsServiceAttribute(t *testing.T) {
	var structuredBuf, humanBuf bytes.Buffer
	require.NoError(t, SetOutput(&structuredBuf, &humanBuf))

	logger := ForService("audiocore")
	require.NotNil(t, logger)
	logger.Info("tick")
	require.Contains(t, structuredBuf.String(), `"service":"audiocore"`)
}

func TestDefaultRotationSettings(t *testing.T) {
	s := DefaultRotationSettings()
	require.Equal(t, RotationSize, s.Policy)
	require.Equal(t, 100, s.MaxSizeMB)
	require.Equal(t, 3, s.MaxBackups)
	require.Equal(t, 28, s.MaxAgeDays)
}
