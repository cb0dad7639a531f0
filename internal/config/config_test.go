package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test.
// Equivalent to t.Chdir, which requires Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.BrokerTimeout)
	assert.Equal(t, 32, cfg.ChatSendBuffer)
	assert.Equal(t, 3, cfg.ChatReconnectAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.ChatReconnectBaseDelay)
	assert.Equal(t, 256, cfg.EventQueueSize)
	assert.Equal(t, []string{"headset", "usb"}, cfg.AudioAffinity)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	yaml := []byte("mode: debug\nport: 3000\naudio_affinity:\n  - bluetooth\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644))

	t.Setenv("CONFIG_ENV", "test")
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, []string{"bluetooth"}, cfg.AudioAffinity)
	assert.Equal(t, 5*time.Second, cfg.BrokerTimeout)
}
