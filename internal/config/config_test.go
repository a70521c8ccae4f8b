package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	require.Equal(t, "medasr-base", cfg.Model.Name)
	require.True(t, cfg.Model.AutoDownload)
	require.Equal(t, 20.0, cfg.Chunking.ChunkSeconds)
	require.Equal(t, 2.0, cfg.Chunking.StrideSeconds)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
server:
  port: 9001
model:
  name: medasr-large
  device: cuda
chunking:
  chunk_seconds: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9001, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Bind, "unset fields keep defaults")
	require.Equal(t, "medasr-large", cfg.Model.Name)
	require.Equal(t, "cuda", cfg.Model.Device)
	require.Equal(t, 30.0, cfg.Chunking.ChunkSeconds)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "server:\n  port: -1\n"))
	require.Error(t, err)
}

func TestLoadRejectsStrideNotBelowChunk(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "chunking:\n  chunk_seconds: 10\n  stride_seconds: 10\n"))
	require.Error(t, err)
}

func TestLoadRejectsZeroStride(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "chunking:\n  chunk_seconds: 10\n  stride_seconds: 0\n"))
	require.ErrorContains(t, err, "stride_seconds")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "medasr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
