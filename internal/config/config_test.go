package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, defaultServerHost, cfg.ServerHost)
	assert.Equal(t, defaultServerPort, cfg.ServerPort)
	assert.Equal(t, defaultSTTLanguage, cfg.STTLanguage)
	assert.Equal(t, defaultHTTPTimeoutSec*time.Second, cfg.HTTPRequestTimeout)
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server_port: 9001
stt_language: en-US
video_fps: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.ServerPort)
	assert.Equal(t, "en-US", cfg.STTLanguage)
	assert.Equal(t, 5, cfg.VideoFPS)
	// Untouched fields keep their defaults.
	assert.Equal(t, defaultServerHost, cfg.ServerHost)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`stt_language: en-US`), 0o644))

	t.Setenv("STT_LANGUAGE", "fr-FR")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fr-FR", cfg.STTLanguage)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, defaultServerHost, cfg.ServerHost)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "VERBOSE")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	// An empty override is a no-op in both applyYAML and applyEnv, so a
	// blank URL cannot reach validation; supply a malformed one through the
	// env layer instead.
	require.NoError(t, os.WriteFile(path, []byte(``), 0o644))
	t.Setenv("EVENT_FORWARD_BASE_URL", "not-a-url")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestChunkBytes(t *testing.T) {
	cfg := &Config{AudioSampleRate: 16000, AudioFrameMs: 20}
	assert.Equal(t, 640, cfg.ChunkBytes())
}

func TestOverlapChunks(t *testing.T) {
	cfg := &Config{AudioFrameMs: 20, AudioOverlapMs: 1000}
	assert.Equal(t, 50, cfg.OverlapChunks())

	zero := &Config{AudioFrameMs: 0, AudioOverlapMs: 1000}
	assert.Equal(t, 0, zero.OverlapChunks())
}
