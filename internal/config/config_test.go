package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/timeline/internal/scene"
)

func TestLoadEnv(t *testing.T) {
	t.Setenv("TIMELINE_FPS", "60")
	t.Setenv("TIMELINE_AUDIO_SYNC", "false")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TIMELINE_BACKGROUND=#112233\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("TIMELINE_BACKGROUND") })

	c, err := LoadEnv(envFile)
	require.NoError(t, err)
	assert.Equal(t, 60, c.FPS)
	assert.False(t, c.AudioSync)
	assert.Equal(t, "#112233", c.Background)
	assert.Equal(t, 1280, c.Width)
}

func TestLoadEnvMissingFile(t *testing.T) {
	_, err := LoadEnv(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestApplySettingsAndPreset(t *testing.T) {
	c := Default()
	c.ApplyPreset("9:16")
	assert.Equal(t, 720, c.Width)
	assert.Equal(t, "9:16", c.Preset)

	c.ApplySettings(&scene.Settings{Width: 1920, Height: 1080, FPS: 25})
	assert.Equal(t, 1920, c.Width)
	assert.Equal(t, 25, c.FPS)
	assert.Equal(t, "#000000", c.Background)
	require.NoError(t, c.Validate())

	c.Width = 1919
	assert.Error(t, c.Validate())
}
