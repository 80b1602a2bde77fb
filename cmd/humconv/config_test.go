package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err, "an explicit path must exist")

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err = LoadConfig("")
	require.NoError(t, err, "a missing default file falls back to defaults")
	assert.Equal(t, "strict", cfg.Mode)
	assert.Equal(t, []string{"**/*.krn"}, cfg.Include)
	assert.False(t, cfg.Permissive())
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "humconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"mode: permissive\ninclude:\n  - scores/**/*.krn\nout: build\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "permissive", cfg.Mode)
	assert.True(t, cfg.Permissive())
	assert.Equal(t, []string{"scores/**/*.krn"}, cfg.Include)
	assert.Equal(t, "build", cfg.Out)
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "humconv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: lenient\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestWatchable(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, watchable(cfg, "/tmp/scores/chorale.krn"))
	assert.False(t, watchable(cfg, "/tmp/scores/notes.txt"))
	assert.False(t, watchable(cfg, "/tmp/scores/.chorale.krn.swp"))
}
