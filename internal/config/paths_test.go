package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	p := NewPaths(base)

	assert.Equal(t, base, p.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), p.OutputDir)
	assert.Equal(t, filepath.Join(base, "logs"), p.LogsDir)
	assert.Equal(t, filepath.Join(base, "data", "usd.csv"), p.GetOutputPath("usd.csv"))
	assert.Equal(t, filepath.Join(base, "logs", "bojfx.log"), p.GetLogPath("bojfx.log"))
}

func TestEnsureDirectories(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent
	assert.NoError(t, p.EnsureDirectories())
}

func TestGetPaths(t *testing.T) {
	p, err := GetPaths()
	require.NoError(t, err)
	assert.NotEmpty(t, p.BaseDir)
	assert.True(t, filepath.IsAbs(p.BaseDir))
}

func TestLogPathResolution(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewPaths("/srv/bojfx").LogPathResolution(logger)
	assert.Contains(t, buf.String(), "output_dir=")
	assert.Contains(t, buf.String(), "logs_dir=")
}
