package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) chan *Config {
	t.Helper()

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, nil, func(cfg *Config) {
		reloaded <- cfg
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go w.Run(ctx)

	// Give the watch loop a moment to start before writing.
	time.Sleep(100 * time.Millisecond)
	return reloaded
}

func TestWatcherReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  provider: ollama\n"), 0o644))

	reloaded := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  provider: anthropic\n"), 0o644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, "anthropic", cfg.Extraction.Provider)
		// Untouched fields come from the defaults.
		require.Equal(t, 0.8, cfg.Governance.AutoCreateThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload was not observed")
	}
}

func TestWatcherReloadKeepsUserLayer(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	userDir := filepath.Join(home, UserConfigDir)
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, UserConfigFile),
		[]byte("governance:\n  auto_create_threshold: 0.9\n"), 0o644))

	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  provider: ollama\n"), 0o644))

	reloaded := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  provider: anthropic\n"), 0o644))

	select {
	case cfg := <-reloaded:
		require.Equal(t, "anthropic", cfg.Extraction.Provider)
		// The user-level layer survives reloads of the project file.
		require.Equal(t, 0.9, cfg.Governance.AutoCreateThreshold)
	case <-time.After(5 * time.Second):
		t.Fatal("config reload was not observed")
	}
}

func TestWatcherKeepsPreviousOnBrokenFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  provider: ollama\n"), 0o644))

	reloaded := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte("extraction: ["), 0o644))

	select {
	case <-reloaded:
		t.Fatal("a broken config file must not be delivered")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "scribe.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  provider: ollama\n"), 0o644))

	reloaded := startWatcher(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("unrelated"), 0o644))

	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(500 * time.Millisecond):
	}
}
